package validation

import "fmt"

const (
	NameMinLength        = 8
	NameMaxLength        = 50
	PasswordMinLength    = 10
	PasswordMaxBytes     = 72 // bcrypt input limit
	EmailMaxLength       = 254
	TitleMinLength       = 6
	TitleMaxLength       = 80
	DescriptionMinLength = 20
	DescriptionMaxLength = 200
)

// Canned user-facing messages. Clients match on these strings, keep them stable.
var (
	MsgObjectType = "The request must be a json object"

	MsgNameRequired = "Please, provide an username"
	MsgNameType     = "The name must be a string"
	MsgNameMin      = fmt.Sprintf("The username must be at least %d characters long", NameMinLength)
	MsgNameMax      = fmt.Sprintf("The maximum number of characters for the username is %d", NameMaxLength)
	MsgNameInUse    = "This username is already in use"

	MsgEmailRequired = "Please, provide an email"
	MsgEmailType     = "The email must be a string"
	MsgEmailInvalid  = "The email provided is invalid"
	MsgEmailMax      = fmt.Sprintf("The maximum number of characters for the email is %d", EmailMaxLength)
	MsgEmailInUse    = "This email is already in use"

	MsgPasswordRequired  = "Please, provide a password"
	MsgPasswordType      = "The password must be a string"
	MsgPasswordMin       = fmt.Sprintf("The password must be at least %d characters long", PasswordMinLength)
	MsgPasswordMax       = fmt.Sprintf("The password must not be longer than %d bytes", PasswordMaxBytes)
	MsgPasswordIncorrect = "The password is incorrect"

	MsgUserIDRequired    = "Please, provide the id of a user"
	MsgUserIDType        = "The user's id must be a string"
	MsgUserNotFoundEmail = "No user was found with the provided email"
	MsgUserNotFoundID    = "No user was found with the provided id"

	MsgTitleRequired       = "Please, provide a title for the task"
	MsgTitleType           = "The task's title must be a string"
	MsgTitleMin            = fmt.Sprintf("The task's title must be at least %d characters long", TitleMinLength)
	MsgTitleMax            = fmt.Sprintf("The maximum number of characters for the task's title is %d", TitleMaxLength)
	MsgDescriptionRequired = "Please, provide a description for the task"
	MsgDescriptionType     = "The task's description must be a string"
	MsgDescriptionMin      = fmt.Sprintf("The task's description must be at least %d characters long", DescriptionMinLength)
	MsgDescriptionMax      = fmt.Sprintf("The maximum number of characters for the task's description is %d", DescriptionMaxLength)
	MsgCompletedType       = "The task's completed flag must be a boolean"
	MsgCompletedFilter     = "The completed filter must be either true or false"
	MsgTaskIDRequired      = "Please, provide the id of a task"
	MsgTaskIDType          = "The task's id must be a string"
	MsgTaskNotFound        = "No task was found with the provided id"
)
