package render

// PresetCSS is the fixed stylesheet for the preset class vocabulary. The
// renderer emits only these classes; embedded forms rely on this sheet being
// in scope.
const PresetCSS = `.ac-form-container {
  max-width: 820px;
  margin: 0 auto;
  padding: 24px;
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
  color: #1f2733;
}
.ac-form-title {
  font-size: 1.6rem;
  font-weight: 700;
  margin: 0 0 20px;
}
.ac-section {
  margin: 0 0 28px;
}
.ac-section-title {
  font-size: 1.15rem;
  font-weight: 600;
  margin: 0 0 14px;
  padding-bottom: 6px;
  border-bottom: 1px solid #d8dee6;
}
.ac-form-group {
  position: relative;
  margin: 0 0 18px;
}
.ac-input,
.ac-textarea {
  width: 100%;
  box-sizing: border-box;
  padding: 14px 12px 6px;
  font-size: 0.95rem;
  border: 1px solid #c3ccd6;
  border-radius: 6px;
  background: #fff;
  outline: none;
}
.ac-input:focus,
.ac-textarea:focus {
  border-color: #3568d4;
}
.ac-textarea {
  min-height: 84px;
  resize: vertical;
}
.ac-form-group > label {
  position: absolute;
  left: 12px;
  top: 10px;
  font-size: 0.95rem;
  color: #5d6b7a;
  pointer-events: none;
  transition: all 0.15s ease;
}
.ac-form-group > .ac-input:focus + label,
.ac-form-group > .ac-textarea:focus + label,
.ac-form-group.ac-has-content > label {
  top: 2px;
  font-size: 0.7rem;
  color: #3568d4;
}
.ac-check {
  display: flex;
  align-items: center;
  gap: 8px;
  margin: 0 0 10px;
  font-size: 0.95rem;
  cursor: pointer;
}
.ac-check input[type="checkbox"] {
  width: 16px;
  height: 16px;
  accent-color: #3568d4;
}
.ac-field-row,
.ac-checkbox-row {
  display: grid;
  gap: 14px;
  margin: 0 0 4px;
}
.ac-cols-2 { grid-template-columns: repeat(2, 1fr); }
.ac-cols-3 { grid-template-columns: repeat(3, 1fr); }
.ac-cols-4 { grid-template-columns: repeat(4, 1fr); }
@media (max-width: 600px) {
  .ac-field-row,
  .ac-checkbox-row,
  .ac-cols-2,
  .ac-cols-3,
  .ac-cols-4 {
    grid-template-columns: 1fr;
  }
}
`

// PrintCSS styles the printable template.
const PrintCSS = `.ac-print-container {
  max-width: 760px;
  margin: 0 auto;
  padding: 32px;
  font-family: Georgia, "Times New Roman", serif;
  color: #111;
}
.ac-print-title {
  font-size: 1.4rem;
  margin: 0 0 24px;
  text-align: center;
}
.ac-print-section {
  margin: 0 0 22px;
}
.ac-print-section-title {
  font-size: 1.05rem;
  font-weight: 700;
  margin: 0 0 10px;
  border-bottom: 1px solid #333;
}
.ac-print-field {
  display: flex;
  gap: 8px;
  margin: 0 0 8px;
  font-size: 0.92rem;
}
.ac-print-label {
  font-weight: 600;
  white-space: nowrap;
}
.ac-print-value {
  flex: 1;
  border-bottom: 1px dotted #666;
  min-height: 1.1em;
}
@media print {
  .ac-print-container { padding: 0; }
}
`
