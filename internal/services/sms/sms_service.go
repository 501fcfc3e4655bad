package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

type SMSService struct {
	Client  *http.Client
	APIKey  string
	BaseURL string
}

func NewSMSService(apiKey string) *SMSService {
	return &SMSService{
		Client:  &http.Client{Timeout: 10 * time.Second},
		APIKey:  apiKey,
		BaseURL: "https://www.fast2sms.com/dev/bulkV2",
	}
}

type smsRequest struct {
	Route   string `json:"route"`
	Numbers string `json:"numbers"`
	Message string `json:"message"`
}

// SendOTP delivers the code via Fast2SMS. Without an API key the code
// is logged instead so local verification still works.
func (s *SMSService) SendOTP(ctx context.Context, phone, code string) error {
	if s.APIKey == "" {
		log.Printf("SMS disabled, OTP for %s: %s", phone, code)
		return nil
	}

	payload := smsRequest{
		Route:   "q",
		Numbers: phone,
		Message: fmt.Sprintf("Your GharPoint verification code is %s. Valid for 5 minutes.", code),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
