package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sunshineplan/imgconv"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/media"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/validation"
)

// Receipt acknowledges a message accepted by the WhatsApp servers.
type Receipt struct {
	ID        string `json:"id"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

type messageBuilder func(ctx context.Context, client *whatsmeow.Client) (*waE2E.Message, error)

func (s *Session) SendText(ctx context.Context, phone string, text string) (*Receipt, error) {
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if err := validation.ValidateMessage(text); err != nil {
		return nil, err
	}
	return s.deliver(ctx, phone, "text", func(context.Context, *whatsmeow.Client) (*waE2E.Message, error) {
		return &waE2E.Message{Conversation: proto.String(text)}, nil
	})
}

// SendImage uploads img and sends it with an optional caption.
func (s *Session) SendImage(ctx context.Context, phone string, img *media.Image, caption string) (*Receipt, error) {
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if img == nil || len(img.Data) == 0 {
		return nil, media.ErrNotAnImage
	}
	return s.deliver(ctx, phone, "image", func(ctx context.Context, client *whatsmeow.Client) (*waE2E.Message, error) {
		return s.buildImageMessage(ctx, client, img, caption)
	})
}

func (s *Session) readyClient() (*whatsmeow.Client, error) {
	client := s.currentClient()
	if client == nil || !s.ready.Load() {
		return nil, ErrClientNotReady
	}
	return client, nil
}

func (s *Session) deliver(ctx context.Context, phone string, kind string, build messageBuilder) (*Receipt, error) {
	number := validation.NormalizePhone(phone)
	op := log.Op("send-"+kind, number)

	client, err := s.readyClient()
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	to, err := s.resolveRecipient(ctx, client, number)
	if err != nil {
		s.failed.Add(1)
		op.Warn("Failed to resolve recipient: " + err.Error())
		return nil, err
	}

	msg, err := build(ctx, client)
	if err != nil {
		s.failed.Add(1)
		op.Error("Failed to build message: " + err.Error())
		return nil, err
	}

	extra := whatsmeow.SendRequestExtra{ID: client.GenerateMessageID()}
	resp, err := s.sendWithRetry(ctx, client, to, msg, extra)
	if err != nil && isLIDError(err) {
		lid, lidErr := s.lookupLID(ctx, client, to)
		if lidErr != nil || lid.IsEmpty() {
			err = fmt.Errorf("%w: %v", ErrRecipientUnresolved, err)
		} else {
			op.Info("Retrying send through LID address")
			to = lid
			resp, err = s.sendWithRetry(ctx, client, to, msg, extra)
			if err != nil && isLIDError(err) {
				err = fmt.Errorf("%w: %v", ErrRecipientUnresolved, err)
			}
		}
	}
	if err != nil {
		s.failed.Add(1)
		op.WithField("kind", Classify(err).String()).Error("Failed to send message: " + err.Error())
		return nil, err
	}

	s.sent.Add(1)
	op.WithField("id", resp.ID).Info("Message sent")
	return &Receipt{
		ID:        resp.ID,
		To:        to.String(),
		Timestamp: resp.Timestamp.Unix(),
		Type:      kind,
	}, nil
}

func (s *Session) resolveRecipient(ctx context.Context, client *whatsmeow.Client, number string) (types.JID, error) {
	infos, err := client.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return types.EmptyJID, err
	}
	if len(infos) == 0 || !infos[0].IsIn {
		return types.EmptyJID, ErrNotOnWhatsApp
	}
	return infos[0].JID, nil
}

func (s *Session) lookupLID(ctx context.Context, client *whatsmeow.Client, pn types.JID) (types.JID, error) {
	if client.Store == nil || client.Store.LIDs == nil {
		return types.EmptyJID, ErrRecipientUnresolved
	}
	return client.Store.LIDs.GetLIDForPN(ctx, pn)
}

// sendWithRetry retries transient failures with a linear backoff, keeping
// the message ID so the server can deduplicate.
func (s *Session) sendWithRetry(ctx context.Context, client *whatsmeow.Client, to types.JID, msg *waE2E.Message, extra whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error) {
	var (
		resp whatsmeow.SendResponse
		err  error
	)
	for attempt := 1; attempt <= s.cfg.SendRetries; attempt++ {
		resp, err = client.SendMessage(ctx, to, msg, extra)
		if err == nil || !isRetryable(err) || attempt == s.cfg.SendRetries {
			return resp, err
		}

		log.Op("send-retry", to.User).WithField("attempt", attempt).Warn(err.Error())
		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-time.After(time.Duration(attempt) * s.cfg.SendRetryBackoff):
		}
	}
	return resp, err
}

func (s *Session) buildImageMessage(ctx context.Context, client *whatsmeow.Client, img *media.Image, caption string) (*waE2E.Message, error) {
	imageBytes, imageType, thumbnail, err := s.prepareImage(img.Data, img.MimeType)
	if err != nil {
		return nil, err
	}

	imageUploaded, err := client.Upload(ctx, imageBytes, whatsmeow.MediaImage)
	if err != nil {
		return nil, fmt.Errorf("upload image to whatsapp: %w", err)
	}

	msg := &waE2E.ImageMessage{
		URL:           proto.String(imageUploaded.URL),
		DirectPath:    proto.String(imageUploaded.DirectPath),
		Mimetype:      proto.String(imageType),
		FileLength:    proto.Uint64(imageUploaded.FileLength),
		FileSHA256:    imageUploaded.FileSHA256,
		FileEncSHA256: imageUploaded.FileEncSHA256,
		MediaKey:      imageUploaded.MediaKey,
		JPEGThumbnail: thumbnail,
	}
	if caption != "" {
		msg.Caption = proto.String(caption)
	}

	if len(thumbnail) > 0 {
		thumbUploaded, err := client.Upload(ctx, thumbnail, whatsmeow.MediaLinkThumbnail)
		if err != nil {
			return nil, fmt.Errorf("upload image thumbnail to whatsapp: %w", err)
		}
		msg.ThumbnailDirectPath = proto.String(thumbUploaded.DirectPath)
		msg.ThumbnailSHA256 = thumbUploaded.FileSHA256
		msg.ThumbnailEncSHA256 = thumbUploaded.FileEncSHA256
	}

	return &waE2E.Message{ImageMessage: msg}, nil
}

// prepareImage applies the optional webp conversion and compression and
// renders the 72px JPEG preview WhatsApp shows before download.
func (s *Session) prepareImage(data []byte, mimeType string) ([]byte, string, []byte, error) {
	if mimeType == "image/webp" && s.cfg.ConvertWebP {
		decoded, err := imgconv.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", nil, fmt.Errorf("%w: %v", media.ErrNotAnImage, err)
		}
		converted := new(bytes.Buffer)
		if err := imgconv.Write(converted, decoded, &imgconv.FormatOption{Format: imgconv.PNG}); err != nil {
			return nil, "", nil, fmt.Errorf("convert webp image: %w", err)
		}
		data = converted.Bytes()
		mimeType = "image/png"
	}

	decoded, err := imgconv.Decode(bytes.NewReader(data))
	if err != nil {
		// formats imgconv cannot read are still sent, just without a preview
		return data, mimeType, nil, nil
	}

	if s.cfg.CompressImage {
		resized := new(bytes.Buffer)
		if err := imgconv.Write(resized,
			imgconv.Resize(decoded, &imgconv.ResizeOption{Width: 1024}),
			&imgconv.FormatOption{Format: imgconv.JPEG}); err != nil {
			return nil, "", nil, fmt.Errorf("compress image: %w", err)
		}
		data = resized.Bytes()
		mimeType = "image/jpeg"
	}

	thumb := new(bytes.Buffer)
	if err := imgconv.Write(thumb,
		imgconv.Resize(decoded, &imgconv.ResizeOption{Width: 72}),
		&imgconv.FormatOption{Format: imgconv.JPEG}); err != nil {
		return data, mimeType, nil, nil
	}

	return data, mimeType, thumb.Bytes(), nil
}

func (s *Session) replyTo(ctx context.Context, evt *events.Message, text string) error {
	client, err := s.readyClient()
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(evt.Info.ID),
				Participant:   proto.String(evt.Info.Sender.ToNonAD().String()),
				QuotedMessage: evt.Message,
			},
		},
	}
	_, err = client.SendMessage(ctx, evt.Info.Chat, msg)
	return err
}

func messageBody(m *waE2E.Message) string {
	switch {
	case m.GetConversation() != "":
		return m.GetConversation()
	case m.GetExtendedTextMessage().GetText() != "":
		return m.GetExtendedTextMessage().GetText()
	case m.GetImageMessage().GetCaption() != "":
		return m.GetImageMessage().GetCaption()
	case m.GetVideoMessage().GetCaption() != "":
		return m.GetVideoMessage().GetCaption()
	case m.GetDocumentMessage().GetCaption() != "":
		return m.GetDocumentMessage().GetCaption()
	}
	return ""
}
