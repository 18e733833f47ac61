// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var verificationHTML = template.Must(template.New("verification").Parse(`<table width="100%" style="max-width: 600px; margin: auto; background: #ffffff; padding: 20px; border-radius: 8px;">
  <tr>
    <td align="center">
      <h2 style="color: #007bff;">{{.Product}}</h2>
      <p style="font-size: 16px; color: #555;">Your verification code is:</p>
      <p style="font-size: 24px; font-weight: bold; color: #007bff; background: #f0f8ff; padding: 10px 20px; border-radius: 5px; display: inline-block;">{{.Code}}</p>
      <p>This code will expire in {{.Minutes}} minutes.</p>
      <p style="color: #777;">If you didn't request this code, please ignore this email.</p>
    </td>
  </tr>
</table>`))

// VerificationMessage renders the email carrying a verification code.
func VerificationMessage(to, subject, code string, ttl time.Duration) (Message, error) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	var html bytes.Buffer
	err := verificationHTML.Execute(&html, struct {
		Product string
		Code    string
		Minutes int
	}{
		Product: "Comment Section",
		Code:    code,
		Minutes: minutes,
	})
	if err != nil {
		return Message{}, fmt.Errorf("mail_render_failed: %w", err)
	}

	return Message{
		To:      to,
		Subject: subject,
		Plain:   fmt.Sprintf("Your Verification Code is: %s (expires in %d minutes)", code, minutes),
		HTML:    html.String(),
	}, nil
}
