// internal/handlers/common.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/soundbridge/backend/internal/utils"
)

// bindingErrorResponse turns a gin binding failure into the structured
// validation envelope when field-level errors are available, and a
// plain bad-request otherwise (malformed JSON, type mismatches).
func bindingErrorResponse(c *gin.Context, err error) {
	if fieldErrs := utils.GetValidationErrors(err); len(fieldErrs) > 0 {
		utils.ValidationErrorResponse(c, fieldErrs)
		return
	}
	utils.BadRequestResponse(c, "Invalid request body", err.Error())
}
