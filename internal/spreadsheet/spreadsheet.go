package spreadsheet

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/excel"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/router"
)

// GetTemplateExcel
// @Summary     Bulk Send Template
// @Description Download the spreadsheet accepted by /send-bulk
// @Tags        Messaging
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success     200 {file} file
// @Failure     500 {object} router.Response
// @Router      /template-excel [get]
func GetTemplateExcel(c *fiber.Ctx) error {
	body, err := excel.Template()
	if err != nil {
		return router.ResponseError(c, fiber.StatusInternalServerError, "Error al generar la plantilla", err.Error())
	}
	return router.ResponseAttachment(c, excel.FileName, excel.ContentType, body)
}
