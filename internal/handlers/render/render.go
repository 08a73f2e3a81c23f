package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	ServiceErrorType    = "service_error"
)

// Limit of JSON request bodies
const MaxBodySize = 1 << 20

var structValidator = newValidator()

type Struct any

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	jsonWithStatus(w, data, http.StatusOK)
}

func Created(w http.ResponseWriter, data any) {
	jsonWithStatus(w, data, http.StatusCreated)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func ServiceError(w http.ResponseWriter, message string, code int) {
	jsonWithStatus(w, ErrorResponse{Error: ServiceErrorType, Message: message}, code)
}

// Details are never exposed: log them before calling
func InternalError(w http.ResponseWriter) {
	ServiceError(w, "Internal server error", http.StatusInternalServerError)
}

func DecodeError(w http.ResponseWriter, err error) {
	response := ErrorResponse{Error: DecodingErrorType}
	code := http.StatusBadRequest

	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		sizeErr   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, io.EOF):
		response.Message = "Request body is empty"
	case errors.As(err, &sizeErr):
		response.Message = fmt.Sprintf("Request body is too large (maximum %d bytes)", sizeErr.Limit)
		code = http.StatusRequestEntityTooLarge
	case errors.As(err, &typeErr):
		response.Message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	case errors.As(err, &syntaxErr):
		response.Message = fmt.Sprintf("Malformed JSON at offset %d", syntaxErr.Offset)
	default:
		response.Message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	jsonWithStatus(w, response, code)
}

func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := ErrorResponse{
		Error:   ValidationErrorType,
		Message: "Request validation failed",
		Fields:  make(map[string]string, len(errs)),
	}

	for _, fieldError := range errs {
		response.Fields[fieldError.Field()] = fieldMessage(fieldError)
	}

	jsonWithStatus(w, response, http.StatusBadRequest)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Value is too short (minimum %s)", fe.Param())
	case "max":
		return fmt.Sprintf("Value is too long (maximum %s)", fe.Param())
	case "email":
		return "Invalid email address"
	case "slug":
		return "Only latin letters, digits, '-' and '_' are allowed"
	default:
		return "Invalid value"
	}
}

// Bind decodes JSON request body into T, writes decoding error response on failure
// Body is limited by MaxBodySize
func Bind[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err := dec.Decode(&value); err != nil {
		DecodeError(w, err)
		return value, err
	}

	return value, nil
}

// BindAndValidate is Bind followed by struct tags validation
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	value, err := Bind[T](w, r)
	if err != nil {
		return value, err
	}

	err = structValidator.Struct(value)
	var errs validator.ValidationErrors
	switch {
	case err == nil:
		return value, nil
	case errors.As(err, &errs):
		ValidationErrors(w, errs)
	default:
		InternalError(w)
	}

	return value, err
}

func jsonWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
