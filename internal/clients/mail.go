package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// MailClient delivers transactional email through the SendGrid v3 API.
type MailClient struct {
	client *resty.Client
	from   string
}

func NewMailClient(baseURL, apiKey, from string) *MailClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(15 * time.Second)

	return &MailClient{client: c, from: from}
}

type mailAddress struct {
	Email string `json:"email"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

// SendOtp emails the one-time code to the recipient.
func (m *MailClient) SendOtp(ctx context.Context, to, code string) error {
	body := mailRequest{
		Personalizations: []mailPersonalization{{To: []mailAddress{{Email: to}}}},
		From:             mailAddress{Email: m.from},
		Subject:          "Your login code",
		Content: []mailContent{{
			Type:  "text/plain",
			Value: fmt.Sprintf("Your one-time login code is %s. It expires in 10 minutes.", code),
		}},
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/v3/mail/send")
	if err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	if resp.StatusCode() != http.StatusAccepted && resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("send otp mail status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
