package presenters

import (
	"errors"

	"splay/domain"

	"github.com/gofiber/fiber/v2"
)

type (
	Response struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    any    `json:"data,omitempty"`
	}

	ErrorBody struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Error   string `json:"error,omitempty"`
		Code    string `json:"code,omitempty"`
	}
)

type mapping struct {
	status int
	code   string
}

// errorTable maps domain errors to the HTTP status and machine code clients
// branch on.
var errorTable = map[error]mapping{
	domain.ErrEmailExists:          {fiber.StatusBadRequest, "EMAIL_EXISTS"},
	domain.ErrInvalidCredentials:   {fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
	domain.ErrUserInactive:         {fiber.StatusForbidden, "USER_INACTIVE"},
	domain.ErrUserNotFound:         {fiber.StatusNotFound, "USER_NOT_FOUND"},
	domain.ErrEmailAlreadyVerified: {fiber.StatusBadRequest, "EMAIL_ALREADY_VERIFIED"},
	domain.ErrInvalidTokenType:     {fiber.StatusUnauthorized, "INVALID_TOKEN"},
	domain.ErrTokenInvalid:         {fiber.StatusUnauthorized, "INVALID_TOKEN"},
	domain.ErrTokenExpired:         {fiber.StatusUnauthorized, "TOKEN_EXPIRED"},
	domain.ErrTokenNotFound:        {fiber.StatusUnauthorized, "INVALID_TOKEN"},
	domain.ErrParseUUID:            {fiber.StatusBadRequest, "INVALID_ID"},
	domain.ErrUserNotAllowed:       {fiber.StatusForbidden, "FORBIDDEN"},

	domain.ErrScanNotFound:       {fiber.StatusNotFound, "SCAN_NOT_FOUND"},
	domain.ErrUnauthorizedAccess: {fiber.StatusForbidden, "FORBIDDEN"},
	domain.ErrFilenameRequired:   {fiber.StatusBadRequest, "FILENAME_REQUIRED"},
	domain.ErrInvalidFileType:    {fiber.StatusBadRequest, "INVALID_FILE_TYPE"},
	domain.ErrNotAnImage:         {fiber.StatusBadRequest, "NOT_AN_IMAGE"},
	domain.ErrFileTooLarge:       {fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	domain.ErrImageTooSmall:      {fiber.StatusBadRequest, "IMAGE_TOO_SMALL"},
	domain.ErrImageTooLarge:      {fiber.StatusBadRequest, "IMAGE_TOO_LARGE"},
	domain.ErrInvalidImage:       {fiber.StatusBadRequest, "INVALID_IMAGE"},
	domain.ErrScanQuotaExceeded:  {fiber.StatusTooManyRequests, "SCAN_QUOTA_EXCEEDED"},

	domain.ErrProductNotFound: {fiber.StatusNotFound, "PRODUCT_NOT_FOUND"},
	domain.ErrInvalidCategory: {fiber.StatusBadRequest, "INVALID_CATEGORY"},

	domain.ErrAlreadyPremium:       {fiber.StatusConflict, "ALREADY_PREMIUM"},
	domain.ErrTransactionNotFound:  {fiber.StatusNotFound, "TRANSACTION_NOT_FOUND"},
	domain.ErrInvalidSignature:     {fiber.StatusForbidden, "INVALID_SIGNATURE"},
	domain.ErrPaymentGatewayFailed: {fiber.StatusBadGateway, "PAYMENT_GATEWAY_ERROR"},
}

func lookup(err error) (mapping, bool) {
	for target, m := range errorTable {
		if errors.Is(err, target) {
			return m, true
		}
	}
	return mapping{}, false
}

// StatusFor returns the HTTP status for err, or fallback when err is not a
// known domain error.
func StatusFor(err error, fallback int) int {
	if m, ok := lookup(err); ok {
		return m.status
	}
	return fallback
}

func CodeFor(err error) string {
	m, _ := lookup(err)
	return m.code
}

func SuccessResponse(c *fiber.Ctx, data any, status int, message string) error {
	return c.Status(status).JSON(Response{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	body := ErrorBody{
		Status:  false,
		Message: message,
	}
	if err != nil {
		body.Error = err.Error()
		body.Code = CodeFor(err)
	}
	return c.Status(status).JSON(body)
}

// DomainError answers err with the status its domain mapping assigns, falling
// back to 500.
func DomainError(c *fiber.Ctx, message string, err error) error {
	return ErrorResponse(c, StatusFor(err, fiber.StatusInternalServerError), message, err)
}
