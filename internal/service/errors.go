package service

import "errors"

// ValidationError reports bad user input. Nothing is written when one is
// returned, and its message is safe to show to the user.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}

var (
	ErrTitleRequired        = NewValidationError("Le titre de la tâche ne peut pas être vide.")
	ErrInvalidPriority      = NewValidationError("Priorité inconnue (low, medium ou high).")
	ErrCategoryNameRequired = NewValidationError("Le nom de la catégorie ne peut pas être vide.")
	ErrCredentialsRequired  = NewValidationError("Email et mot de passe requis")
	ErrEmailTaken           = NewValidationError("Un compte existe déjà avec cet email")
	ErrNoAccounts           = NewValidationError("Aucun utilisateur enregistré. Veuillez vous inscrire.")
	ErrInvalidCredentials   = NewValidationError("Email ou mot de passe incorrect")
	ErrNotLoggedIn          = NewValidationError("Aucun utilisateur connecté")
	ErrWrongPassword        = NewValidationError("Mot de passe actuel incorrect")
	ErrPasswordRequired     = NewValidationError("Le nouveau mot de passe ne peut pas être vide.")
)
