package render

// FloatingLabelJS keeps the floating-label state in sync with field content.
// Inputs that already hold a value keep their label raised.
const FloatingLabelJS = `document.addEventListener('DOMContentLoaded', function () {
  var groups = document.querySelectorAll('.ac-form-group');
  groups.forEach(function (group) {
    var field = group.querySelector('.ac-input, .ac-textarea');
    if (!field) {
      return;
    }
    var sync = function () {
      if (field.value && field.value.length > 0) {
        group.classList.add('ac-has-content');
      } else {
        group.classList.remove('ac-has-content');
      }
    };
    field.addEventListener('input', sync);
    field.addEventListener('change', sync);
    sync();
  });
});
`
