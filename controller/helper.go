package controller

import (
	"fmt"

	"github.com/mailjet/mailjet-apiv3-go"
)

func (ctrl *controller) sendEmail(to string, subject string, body string) error {
	// when in production, send real email, else just log it
	if ctrl.model.Config.Mode == "production" {
		return ctrl.sendRealEmail(to, subject, body)
	}
	ctrl.logger.Info("email not sent outside production", "to", to, "subject", subject, "body", body)
	return nil
}

func (ctrl *controller) sendRealEmail(to string, subject string, body string) error {
	cfg := ctrl.model.Config
	mj := mailjet.NewMailjetClient(cfg.MailAPIKey, cfg.MailSecret)

	from := cfg.MailFrom
	if from == "" {
		from = "noreply@ellarises.org"
	}
	messagesInfo := []mailjet.InfoMessagesV31{
		{
			From: &mailjet.RecipientV31{
				Email: from,
				Name:  "Ella Rises",
			},
			To: &mailjet.RecipientsV31{
				mailjet.RecipientV31{
					Email: to,
				},
			},
			Subject:  subject,
			TextPart: body,
		},
	}

	messages := mailjet.MessagesV31{Info: messagesInfo}
	if _, err := mj.SendMailV31(&messages); err != nil {
		return fmt.Errorf("cannot send mail to %s: %w", to, err)
	}
	return nil
}
