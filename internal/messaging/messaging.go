package messaging

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	typWhatsApp "github.com/gdbrns/go-whatsapp-gateway/internal/types"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/excel"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/media"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/router"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/validation"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-gateway/pkg/whatsapp"
)

// Sender is the part of the WhatsApp session the messaging routes need.
type Sender interface {
	SendText(ctx context.Context, phone string, text string) (*pkgWhatsApp.Receipt, error)
	SendImage(ctx context.Context, phone string, img *media.Image, caption string) (*pkgWhatsApp.Receipt, error)
	Messages() []pkgWhatsApp.ReceivedMessage
	IsReady() bool
}

type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*media.Image, error)
}

var (
	sender          Sender
	fetcher         ImageFetcher = media.NewFetcherFromEnv()
	bulkConcurrency              = env.GetEnvIntOrDefault("WHATSAPP_BULK_CONCURRENCY", 2)
)

func Use(s Sender) {
	sender = s
}

func UseFetcher(f ImageFetcher) {
	fetcher = f
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func responseError(c *fiber.Ctx, err error) error {
	kind := pkgWhatsApp.Classify(err)
	message := kind.Message()
	if kind == pkgWhatsApp.KindInvalidInput {
		message = err.Error()
	}
	return router.ResponseError(c, kind.HTTPStatus(), message, err.Error())
}

// Send
// @Summary     Send Text Message
// @Description Send a text message to a phone number
// @Tags        Messaging
// @Accept      json
// @Produce     json
// @Param       body body typWhatsApp.RequestSendMessage true "Destination and text"
// @Success     200 {object} router.Response
// @Failure     400 {object} router.Response
// @Failure     503 {object} router.Response
// @Router      /send [post]
func Send(c *fiber.Ctx) error {
	var req typWhatsApp.RequestSendMessage
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}

	req.NumeroDestino = strings.TrimSpace(req.NumeroDestino)
	if req.NumeroDestino == "" || strings.TrimSpace(req.Mensaje) == "" {
		return router.ResponseBadRequest(c, "Número de destino y mensaje son requeridos")
	}

	receipt, err := sender.SendText(userContext(c), req.NumeroDestino, req.Mensaje)
	if err != nil {
		return responseError(c, err)
	}

	return router.ResponseSuccessWithData(c, "Mensaje enviado", typWhatsApp.ResponseSend{Receipt: receipt})
}

// SendWithImage
// @Summary     Send Image Message
// @Description Download an image from a URL and send it with a caption
// @Tags        Messaging
// @Accept      json
// @Produce     json
// @Param       body body typWhatsApp.RequestSendImage true "Destination, caption and image URL"
// @Success     200 {object} router.Response
// @Failure     400 {object} router.Response
// @Failure     404 {object} router.Response
// @Failure     408 {object} router.Response
// @Failure     503 {object} router.Response
// @Router      /send-with-image [post]
func SendWithImage(c *fiber.Ctx) error {
	var req typWhatsApp.RequestSendImage
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}

	req.NumeroDestino = strings.TrimSpace(req.NumeroDestino)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.NumeroDestino == "" || strings.TrimSpace(req.Mensaje) == "" || req.ImageURL == "" {
		return router.ResponseBadRequest(c, "Número de destino, mensaje e imageUrl son requeridos")
	}
	if err := validation.ValidatePhone(req.NumeroDestino); err != nil {
		return responseError(c, err)
	}
	if err := validation.ValidateURL(req.ImageURL); err != nil {
		return responseError(c, err)
	}

	if !sender.IsReady() {
		return responseError(c, pkgWhatsApp.ErrClientNotReady)
	}

	ctx := userContext(c)
	img, err := fetcher.Fetch(ctx, req.ImageURL)
	if err != nil {
		log.Print(c).WithField("url", req.ImageURL).Warn("Failed to download image: " + err.Error())
		return responseError(c, err)
	}

	receipt, err := sender.SendImage(ctx, req.NumeroDestino, img, req.Mensaje)
	if err != nil {
		return responseError(c, err)
	}

	return router.ResponseSuccessWithData(c, "Mensaje con imagen enviado", typWhatsApp.ResponseSendImage{
		Receipt:   receipt,
		ImageInfo: imageInfo(img),
	})
}

func imageInfo(img *media.Image) typWhatsApp.ResponseImageInfo {
	return typWhatsApp.ResponseImageInfo{
		MimeType: img.MimeType,
		Size:     img.Size,
		FileName: img.FileName,
		Source:   img.Source,
	}
}

// GetMessages
// @Summary     List Received Messages
// @Description Every message seen since the process started, oldest first
// @Tags        Messaging
// @Produce     json
// @Success     200 {object} router.Response
// @Router      /messages [get]
func GetMessages(c *fiber.Ctx) error {
	messages := sender.Messages()
	return router.ResponseSuccessWithData(c, "", typWhatsApp.ResponseMessages{
		Messages: messages,
		Count:    len(messages),
	})
}

// SendBulk
// @Summary     Send Messages From Spreadsheet
// @Description Send every row of an uploaded template spreadsheet
// @Tags        Messaging
// @Accept      multipart/form-data
// @Produce     json
// @Param       file formData file true "Filled template (.xlsx)"
// @Success     200 {object} router.Response
// @Failure     400 {object} router.Response
// @Router      /send-bulk [post]
func SendBulk(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return router.ResponseBadRequest(c, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return router.ResponseBadRequest(c, "Failed to open uploaded file")
	}
	defer file.Close()

	rows, err := excel.ParseRows(file)
	if err != nil {
		return router.ResponseError(c, http.StatusBadRequest, "Invalid spreadsheet", err.Error())
	}

	ctx := userContext(c)
	results := make([]typWhatsApp.ResponseBulkRow, len(rows))

	var g errgroup.Group
	g.SetLimit(max(bulkConcurrency, 1))
	for i, row := range rows {
		g.Go(func() error {
			results[i] = sendRow(ctx, row)
			return nil
		})
	}
	_ = g.Wait()

	res := typWhatsApp.ResponseBulk{Total: len(rows), Results: results}
	for _, r := range results {
		if r.Receipt != nil {
			res.Sent++
		} else {
			res.Failed++
		}
	}

	log.Print(c).WithField("sent", res.Sent).WithField("failed", res.Failed).Info("Bulk send finished")
	return router.ResponseSuccessWithData(c, "Envío masivo finalizado", res)
}

func sendRow(ctx context.Context, row excel.Row) typWhatsApp.ResponseBulkRow {
	result := typWhatsApp.ResponseBulkRow{Line: row.Line, NumeroDestino: row.NumeroDestino}

	fail := func(err error) typWhatsApp.ResponseBulkRow {
		result.Status = "failed"
		result.Code = pkgWhatsApp.StatusCode(err)
		result.Error = err.Error()
		return result
	}

	if strings.TrimSpace(row.NumeroDestino) == "" {
		return fail(validation.ErrPhoneEmpty)
	}
	if strings.TrimSpace(row.Mensaje) == "" {
		return fail(validation.ErrMessageEmpty)
	}

	var (
		receipt *pkgWhatsApp.Receipt
		err     error
	)
	if row.ImageURL != "" {
		if !sender.IsReady() {
			return fail(pkgWhatsApp.ErrClientNotReady)
		}
		var img *media.Image
		if img, err = fetcher.Fetch(ctx, row.ImageURL); err != nil {
			return fail(err)
		}
		receipt, err = sender.SendImage(ctx, row.NumeroDestino, img, row.Mensaje)
	} else {
		receipt, err = sender.SendText(ctx, row.NumeroDestino, row.Mensaje)
	}
	if err != nil {
		return fail(err)
	}

	result.Status = "sent"
	result.Code = http.StatusOK
	result.Receipt = receipt
	return result
}
