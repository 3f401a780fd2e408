// Package mailer provides the outbound email model and the provider interface.
//
// Providers implement [Sender]. [Mailer] wraps a provider, applies the default
// From address and validates every message before delivery. Providers that
// transmit raw RFC 5322 messages (Gmail API, SMTP) build them with [BuildMIME].
//
// Attachments are restricted to application/* and image/* media types; any
// other type is rejected with [ErrUnsupportedMediaType] before anything is sent.
//
// # Usage
//
//	m := mailer.New(resend.New(cfg), mailer.Recipient("QTurkey", "list@example.com"))
//
//	err := m.Send(ctx, &mailer.Email{
//		To:      []string{"alice@example.com"},
//		Subject: "Spring newsletter",
//		HTML:    "<p>Hello</p>",
//	})
//	if errors.Is(err, mailer.ErrSendFailed) {
//		// provider rejected the message
//	}
package mailer
