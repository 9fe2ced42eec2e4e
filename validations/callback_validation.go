package validations

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
	pkgError "github.com/VIER-CognitiveVoice/cvg-connect/pkg/error"
)

// ValidateCallback enforces the fields every Gateway callback must carry.
func ValidateCallback(ctx context.Context, request *domain.CallbackRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.DialogID, validation.Required),
		validation.Field(&request.Callback, validation.Required),
		validation.Field(&request.ProjectContext, validation.Required, validation.By(validProjectContext)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

// ValidateAnswer additionally requires the classified answer type. Unknown
// type names are rejected so the engine never sees an unclassifiable answer.
func ValidateAnswer(ctx context.Context, request *domain.CallbackRequest) error {
	if err := ValidateCallback(ctx, request); err != nil {
		return err
	}

	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Type, validation.Required, validation.By(validAnswerType)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func validProjectContext(value any) error {
	pc, _ := value.(*domain.ProjectContext)
	if pc == nil {
		return validation.NewError("validation_required", "cannot be blank")
	}
	return validation.ValidateStruct(pc,
		validation.Field(&pc.ResellerToken, validation.Required),
		validation.Field(&pc.ProjectToken, validation.Required),
	)
}

func validAnswerType(value any) error {
	at, _ := value.(*domain.AnswerType)
	if at == nil {
		return validation.NewError("validation_required", "cannot be blank")
	}
	switch at.Name {
	case domain.AnswerTypeMultipleChoice, domain.AnswerTypeTimeout:
		return nil
	case domain.AnswerTypeNumber:
		// Without a value there is no text to derive for the engine.
		if at.Value == "" {
			return validation.NewError("validation_required", "value is required for Number answers")
		}
		return nil
	default:
		return fmt.Errorf("%w %s", domain.ErrUnsupportedAnswerType, at.Name)
	}
}
