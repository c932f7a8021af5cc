package validation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	domainerrors "taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/go-playground/validator/v10"
)

// Store is the read side of the credential store used by the store-backed rules.
// Lookups report absence with domainerrors.ErrUserNotFound / ErrTaskNotFound.
type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
}

type fieldRules struct {
	validate *validator.Validate
	store    Store
}

func (f *fieldRules) tag(keyword, tag, message string) Rule {
	return Rule{
		Keyword: keyword,
		Message: message,
		Kind:    KindBadRequest,
		Check: func(_ context.Context, value any) (bool, error) {
			return f.validate.Var(value, tag) == nil, nil
		},
	}
}

func (f *fieldRules) minLength(n int, message string) Rule {
	return f.tag("minLength", fmt.Sprintf("min=%d", n), message)
}

func (f *fieldRules) maxLength(n int, message string) Rule {
	return f.tag("maxLength", fmt.Sprintf("max=%d", n), message)
}

// maxBytes counts bytes, not runes: bcrypt rejects longer input.
func (f *fieldRules) maxBytes(n int, message string) Rule {
	return f.tag("maxBytes", fmt.Sprintf("maxbytes=%d", n), message)
}

func (f *fieldRules) email(message string) Rule {
	return f.tag("pattern", "email", message)
}

func (f *fieldRules) nameIsAvailable() Rule {
	return Rule{
		Keyword: "nameIsAvailable",
		Message: MsgNameInUse,
		Kind:    KindBadRequest,
		Check: func(ctx context.Context, value any) (bool, error) {
			_, err := f.store.GetUserByName(ctx, value.(string))
			return absent(err, domainerrors.ErrUserNotFound)
		},
	}
}

func (f *fieldRules) emailIsAvailable() Rule {
	return Rule{
		Keyword: "emailIsAvailable",
		Message: MsgEmailInUse,
		Kind:    KindBadRequest,
		Check: func(ctx context.Context, value any) (bool, error) {
			_, err := f.store.GetUserByEmail(ctx, value.(string))
			return absent(err, domainerrors.ErrUserNotFound)
		},
	}
}

func (f *fieldRules) userExistsByEmail() Rule {
	return Rule{
		Keyword: "userExistsByEmail",
		Message: MsgUserNotFoundEmail,
		Kind:    KindNotFound,
		Check: func(ctx context.Context, value any) (bool, error) {
			_, err := f.store.GetUserByEmail(ctx, value.(string))
			return present(err, domainerrors.ErrUserNotFound)
		},
	}
}

func (f *fieldRules) userExistsByID() Rule {
	return Rule{
		Keyword: "userExistsById",
		Message: MsgUserNotFoundID,
		Kind:    KindNotFound,
		Check: func(ctx context.Context, value any) (bool, error) {
			_, err := f.store.GetUserByID(ctx, value.(string))
			return present(err, domainerrors.ErrUserNotFound)
		},
	}
}

func (f *fieldRules) taskExists() Rule {
	return Rule{
		Keyword: "taskExists",
		Message: MsgTaskNotFound,
		Kind:    KindNotFound,
		Check: func(ctx context.Context, value any) (bool, error) {
			_, err := f.store.GetTaskByID(ctx, value.(string))
			return present(err, domainerrors.ErrTaskNotFound)
		},
	}
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func present(err, notFound error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, notFound):
		return false, nil
	default:
		return false, err
	}
}

func absent(err, notFound error) (bool, error) {
	found, err := present(err, notFound)
	if err != nil {
		return false, err
	}
	return !found, nil
}
