package validation

import (
	"context"

	"taskmanager/internal/domain/models"

	"github.com/go-playground/validator/v10"
)

const (
	SchemaRegisterUser  = "register-user"
	SchemaLoginUser     = "login-user"
	SchemaUpdateUser    = "update-user"
	SchemaDeleteOwnUser = "delete-own-user"
	SchemaGetUser       = "get-user"
	SchemaGetTask       = "get-task"
	SchemaCreateTask    = "create-task"
	SchemaUpdateTask    = "update-task"
)

// Validator holds the compiled schemas. Build it once with New and share it.
type Validator struct {
	schemas map[string]*Schema
}

func New(store Store) *Validator {
	validate := validator.New()
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
	f := &fieldRules{validate: validate, store: store}

	name := Property{
		Name:        "name",
		Type:        TypeString,
		TypeMessage: MsgNameType,
		Rules: []Rule{
			f.minLength(NameMinLength, MsgNameMin),
			f.maxLength(NameMaxLength, MsgNameMax),
			f.nameIsAvailable(),
		},
	}
	email := Property{
		Name:        "email",
		Type:        TypeString,
		TypeMessage: MsgEmailType,
		Rules: []Rule{
			f.maxLength(EmailMaxLength, MsgEmailMax),
			f.email(MsgEmailInvalid),
			f.emailIsAvailable(),
		},
	}
	password := Property{
		Name:        "password",
		Type:        TypeString,
		TypeMessage: MsgPasswordType,
		Rules: []Rule{
			f.minLength(PasswordMinLength, MsgPasswordMin),
			f.maxBytes(PasswordMaxBytes, MsgPasswordMax),
		},
	}
	userID := Property{
		Name:        "id",
		Type:        TypeString,
		TypeMessage: MsgUserIDType,
		Rules:       []Rule{f.userExistsByID()},
	}
	taskID := Property{
		Name:        "id",
		Type:        TypeString,
		TypeMessage: MsgTaskIDType,
		Rules:       []Rule{f.taskExists()},
	}
	title := Property{
		Name:        "title",
		Type:        TypeString,
		TypeMessage: MsgTitleType,
		Rules: []Rule{
			f.minLength(TitleMinLength, MsgTitleMin),
			f.maxLength(TitleMaxLength, MsgTitleMax),
		},
	}
	description := Property{
		Name:        "description",
		Type:        TypeString,
		TypeMessage: MsgDescriptionType,
		Rules: []Rule{
			f.minLength(DescriptionMinLength, MsgDescriptionMin),
			f.maxLength(DescriptionMaxLength, MsgDescriptionMax),
		},
	}
	completed := Property{
		Name:        "completed",
		Type:        TypeBoolean,
		TypeMessage: MsgCompletedType,
	}

	schemas := []*Schema{
		{
			Name: SchemaRegisterUser,
			Required: []Required{
				{Field: "name", Message: MsgNameRequired},
				{Field: "email", Message: MsgEmailRequired},
				{Field: "password", Message: MsgPasswordRequired},
			},
			Properties: []Property{name, email, password},
		},
		{
			Name: SchemaLoginUser,
			Required: []Required{
				{Field: "email", Message: MsgEmailRequired},
				{Field: "password", Message: MsgPasswordRequired},
			},
			Properties: []Property{
				{
					Name:        "email",
					Type:        TypeString,
					TypeMessage: MsgEmailType,
					Rules:       []Rule{f.email(MsgEmailInvalid), f.userExistsByEmail()},
				},
				password,
			},
		},
		{
			Name:       SchemaUpdateUser,
			Required:   []Required{{Field: "id", Message: MsgUserIDRequired}},
			Properties: []Property{userID, name, email, password},
		},
		{
			Name: SchemaDeleteOwnUser,
			Required: []Required{
				{Field: "id", Message: MsgUserIDRequired},
				{Field: "password", Message: MsgPasswordRequired},
			},
			Properties: []Property{userID, password},
		},
		{
			Name:       SchemaGetUser,
			Required:   []Required{{Field: "id", Message: MsgUserIDRequired}},
			Properties: []Property{userID},
		},
		{
			Name:       SchemaGetTask,
			Required:   []Required{{Field: "id", Message: MsgTaskIDRequired}},
			Properties: []Property{taskID},
		},
		{
			Name: SchemaCreateTask,
			Required: []Required{
				{Field: "title", Message: MsgTitleRequired},
				{Field: "description", Message: MsgDescriptionRequired},
				{Field: "userId", Message: MsgUserIDRequired},
			},
			Properties: []Property{
				title,
				description,
				completed,
				{
					Name:        "userId",
					Type:        TypeString,
					TypeMessage: MsgUserIDType,
					Rules:       []Rule{f.userExistsByID()},
				},
			},
		},
		{
			Name:       SchemaUpdateTask,
			Required:   []Required{{Field: "id", Message: MsgTaskIDRequired}},
			Properties: []Property{taskID, title, description, completed},
		},
	}

	v := &Validator{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		v.schemas[s.Name] = s
	}
	return v
}

// Schema returns a compiled schema by name, or nil.
func (v *Validator) Schema(name string) *Schema {
	return v.schemas[name]
}

func (v *Validator) RegisterUser(ctx context.Context, in map[string]any) (*models.RegisterInput, error) {
	if err := v.schemas[SchemaRegisterUser].Validate(ctx, in); err != nil {
		return nil, err
	}
	return &models.RegisterInput{
		Name:     in["name"].(string),
		Email:    in["email"].(string),
		Password: in["password"].(string),
	}, nil
}

func (v *Validator) LoginUser(ctx context.Context, in map[string]any) (*models.LoginInput, error) {
	if err := v.schemas[SchemaLoginUser].Validate(ctx, in); err != nil {
		return nil, err
	}
	return &models.LoginInput{
		Email:    in["email"].(string),
		Password: in["password"].(string),
	}, nil
}

func (v *Validator) UpdateUser(ctx context.Context, in map[string]any) (*models.UpdateUserInput, error) {
	if err := v.schemas[SchemaUpdateUser].Validate(ctx, in); err != nil {
		return nil, err
	}
	return &models.UpdateUserInput{
		ID:       in["id"].(string),
		Name:     optionalString(in, "name"),
		Email:    optionalString(in, "email"),
		Password: optionalString(in, "password"),
	}, nil
}

func (v *Validator) DeleteOwnUser(ctx context.Context, in map[string]any) (*models.DeleteOwnUserInput, error) {
	if err := v.schemas[SchemaDeleteOwnUser].Validate(ctx, in); err != nil {
		return nil, err
	}
	return &models.DeleteOwnUserInput{
		ID:       in["id"].(string),
		Password: in["password"].(string),
	}, nil
}

func (v *Validator) GetUser(ctx context.Context, id string) error {
	return v.schemas[SchemaGetUser].Validate(ctx, map[string]any{"id": id})
}

func (v *Validator) GetTask(ctx context.Context, id string) error {
	return v.schemas[SchemaGetTask].Validate(ctx, map[string]any{"id": id})
}

func (v *Validator) CreateTask(ctx context.Context, in map[string]any) (*models.CreateTaskInput, error) {
	if err := v.schemas[SchemaCreateTask].Validate(ctx, in); err != nil {
		return nil, err
	}
	out := &models.CreateTaskInput{
		Title:       in["title"].(string),
		Description: in["description"].(string),
		UserID:      in["userId"].(string),
	}
	if completed := optionalBool(in, "completed"); completed != nil {
		out.Completed = *completed
	}
	return out, nil
}

func (v *Validator) UpdateTask(ctx context.Context, in map[string]any) (*models.UpdateTaskInput, error) {
	if err := v.schemas[SchemaUpdateTask].Validate(ctx, in); err != nil {
		return nil, err
	}
	return &models.UpdateTaskInput{
		ID:          in["id"].(string),
		Title:       optionalString(in, "title"),
		Description: optionalString(in, "description"),
		Completed:   optionalBool(in, "completed"),
	}, nil
}

func optionalString(in map[string]any, key string) *string {
	s, ok := in[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func optionalBool(in map[string]any, key string) *bool {
	b, ok := in[key].(bool)
	if !ok {
		return nil
	}
	return &b
}
