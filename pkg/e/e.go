package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// Корзина
	ErrInsufficientStock = fmt.Errorf("insufficient stock")
	ErrInvalidQuantity   = fmt.Errorf("quantity must be at least 1")
	ErrLineNotFound      = fmt.Errorf("line not found in cart")
	ErrEmptyCart         = fmt.Errorf("cart is empty")

	// Оформление выдачи
	ErrSubmissionInProgress    = fmt.Errorf("submission already in progress")
	ErrFulfillmentRejected     = fmt.Errorf("fulfillment rejected")
	ErrCollaboratorUnavailable = fmt.Errorf("inventory collaborator unavailable")
	ErrInvalidTransition       = fmt.Errorf("invalid state transition")
	ErrNotPermitted            = fmt.Errorf("operator role is not permitted to dispense")

	// Каталог и рецепты
	ErrCatalogNotLoaded     = fmt.Errorf("catalog is not loaded")
	ErrSearchSuperseded     = fmt.Errorf("search superseded by a newer query")
	ErrPrescriptionConsumed = fmt.Errorf("prescription already consumed")
	ErrNoMedications        = fmt.Errorf("prescription has no medications")

	// Документы
	ErrUnknownFormat      = fmt.Errorf("unknown document format")
	ErrNoIssue            = fmt.Errorf("no completed issue in session")
	ErrDispatchInProgress = fmt.Errorf("document dispatch already in progress")

	// 400 / 404 / 500
	ErrStatusBadRequest    = fmt.Errorf("bad request")
	ErrMissingFields       = fmt.Errorf("missing required fields")
	ErrSessionNotFound     = fmt.Errorf("session not found")
	ErrProductNotFound     = fmt.Errorf("product not found")
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
