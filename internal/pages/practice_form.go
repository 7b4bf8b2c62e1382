package pages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
	"github.com/xkilldash9x/demoqa-e2e/internal/fixtures"
)

const practiceFormPath = "/automation-practice-form"

var (
	formFirstName     = engine.ByID("firstName")
	formLastName      = engine.ByID("lastName")
	formEmail         = engine.ByID("userEmail")
	formMobile        = engine.ByID("userNumber")
	formDateOfBirth   = engine.ByID("dateOfBirthInput")
	formSubjects      = engine.ByID("subjectsInput")
	formSubjectOption = engine.ByCSS(".subjects-auto-complete__option")
	formUpload        = engine.ByID("uploadPicture")
	formAddress       = engine.ByID("currentAddress")
	formState         = engine.ByCSS("#state input")
	formCity          = engine.ByCSS("#city input")
	formSubmit        = engine.ByID("submit")
	formModal         = engine.ByCSS(".modal-content")
	formModalClose    = engine.ByID("closeLargeModal")
)

// jsSubmittedValues reads the label/value table of the confirmation dialog.
const jsSubmittedValues = `
const out = {};
document.querySelectorAll('.modal-content tbody tr').forEach(tr => {
  const cells = tr.querySelectorAll('td');
  if (cells.length === 2) { out[cells[0].innerText.trim()] = cells[1].innerText.trim(); }
});
return out;`

// PracticeFormPage drives the student registration form.
type PracticeFormPage struct {
	base
}

func (p *PracticeFormPage) Open(ctx context.Context) error {
	return p.open(ctx, practiceFormPath)
}

// Fill types every field of form. Empty optional fields are left untouched.
func (p *PracticeFormPage) Fill(ctx context.Context, form fixtures.PracticeForm) error {
	fields := []struct {
		loc   engine.Locator
		value string
	}{
		{formFirstName, form.FirstName},
		{formLastName, form.LastName},
		{formEmail, form.Email},
		{formMobile, form.Mobile},
	}
	for _, f := range fields {
		if err := p.eng.Type(ctx, f.loc, f.value); err != nil {
			return fmt.Errorf("filling practice form: %w", err)
		}
	}

	if form.Gender != "" {
		if err := p.eng.Click(ctx, labelFor("gender-radio", form.Gender)); err != nil {
			return fmt.Errorf("selecting gender %q: %w", form.Gender, err)
		}
	}

	if form.DateOfBirth != "" {
		if err := p.eng.Type(ctx, formDateOfBirth, form.DateOfBirth); err != nil {
			return fmt.Errorf("entering date of birth: %w", err)
		}
		// Closes the date picker, which otherwise covers the fields below it.
		if err := p.eng.SendKeys(ctx, formDateOfBirth, engine.KeyEscape); err != nil {
			return fmt.Errorf("closing date picker: %w", err)
		}
	}

	for _, subject := range form.Subjects {
		if err := p.chooseSubject(ctx, subject); err != nil {
			return err
		}
	}

	for _, hobby := range form.Hobbies {
		if err := p.eng.JSClick(ctx, labelFor("hobbies-checkbox", hobby)); err != nil {
			return fmt.Errorf("checking hobby %q: %w", hobby, err)
		}
	}

	if err := p.eng.Type(ctx, formAddress, form.Address); err != nil {
		return fmt.Errorf("entering address: %w", err)
	}

	if form.State != "" {
		if err := p.selectOption(ctx, formState, form.State); err != nil {
			return fmt.Errorf("selecting state %q: %w", form.State, err)
		}
		if form.City != "" {
			if err := p.selectOption(ctx, formCity, form.City); err != nil {
				return fmt.Errorf("selecting city %q: %w", form.City, err)
			}
		}
	}

	p.logger.Info("Form filled successfully.", zap.String("student", form.FullName()))
	return nil
}

func (p *PracticeFormPage) chooseSubject(ctx context.Context, subject string) error {
	if err := p.eng.SendKeys(ctx, formSubjects, subject); err != nil {
		return fmt.Errorf("typing subject %q: %w", subject, err)
	}
	if _, err := p.eng.WaitAll(ctx, formSubjectOption); err != nil {
		return fmt.Errorf("waiting for subject suggestions: %w", err)
	}
	if err := p.eng.SendKeys(ctx, formSubjects, engine.KeyEnter); err != nil {
		return fmt.Errorf("choosing subject %q: %w", subject, err)
	}
	return nil
}

// selectOption types into a react-select input and accepts the highlighted option.
func (p *PracticeFormPage) selectOption(ctx context.Context, loc engine.Locator, value string) error {
	if err := p.eng.SendKeys(ctx, loc, value); err != nil {
		return err
	}
	return p.eng.SendKeys(ctx, loc, engine.KeyEnter)
}

// Upload attaches the file at path to the picture input.
func (p *PracticeFormPage) Upload(ctx context.Context, path string) error {
	if err := p.eng.SendKeys(ctx, formUpload, path); err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	p.logger.Info("File uploaded successfully.", zap.String("path", path))
	return nil
}

// Submit scrolls to the submit button and clicks it from script, since ads
// tend to cover it.
func (p *PracticeFormPage) Submit(ctx context.Context) error {
	if err := p.removeOverlays(ctx); err != nil {
		return err
	}
	if err := p.eng.ScrollIntoView(ctx, formSubmit); err != nil {
		return fmt.Errorf("submitting practice form: %w", err)
	}
	if err := p.eng.JSClick(ctx, formSubmit); err != nil {
		return fmt.Errorf("submitting practice form: %w", err)
	}
	p.logger.Info("Form submitted successfully.")
	return nil
}

// IsSubmissionPopupDisplayed waits up to the engine timeout for the
// confirmation dialog.
func (p *PracticeFormPage) IsSubmissionPopupDisplayed(ctx context.Context) bool {
	return p.eng.IsVisible(ctx, formModal, p.eng.Policy().Timeout)
}

// SubmittedValues returns the confirmation dialog's table keyed by label,
// e.g. "Student Name" -> "John Doe".
func (p *PracticeFormPage) SubmittedValues(ctx context.Context) (map[string]string, error) {
	if _, err := p.eng.WaitAll(ctx, formModal); err != nil {
		return nil, fmt.Errorf("reading submission: %w", err)
	}
	raw, err := p.eng.RunScript(ctx, jsSubmittedValues)
	if err != nil {
		return nil, fmt.Errorf("reading submission: %w", err)
	}
	values := map[string]string{}
	if err := jsonAPI.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decoding submission table: %w", err)
	}
	return values, nil
}

// ClosePopup dismisses the confirmation dialog and waits for it to go away.
func (p *PracticeFormPage) ClosePopup(ctx context.Context) error {
	if err := p.removeOverlays(ctx); err != nil {
		return err
	}
	if err := p.eng.ScrollIntoView(ctx, formModalClose); err != nil {
		return fmt.Errorf("closing popup: %w", err)
	}
	if err := p.eng.JSClick(ctx, formModalClose); err != nil {
		return fmt.Errorf("closing popup: %w", err)
	}
	if err := p.waitGone(ctx, "confirmation dialog to close", formModal); err != nil {
		return err
	}
	p.logger.Info("Popup closed successfully.")
	return nil
}
