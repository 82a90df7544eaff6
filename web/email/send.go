package email

import (
	"fmt"
	"net/smtp"
	"os"
)

func SendEmail(to string, subject string, body string) error {
	smtpServer := os.Getenv("SMTP_SERVER")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromAddr := os.Getenv("FROM_ADDR")
	fromName := os.Getenv("FROM_NAME")

	if smtpServer == "" || smtpPort == "" || smtpUser == "" || smtpPass == "" || fromAddr == "" || fromName == "" {
		return fmt.Errorf(
			"missing required SMTP environment variables: SMTP_SERVER=%s, SMTP_PORT=%s, SMTP_USER=%s, SMTP_PASS=%s, FROM_ADDR=%s, FROM_NAME=%s",
			smtpServer, smtpPort, smtpUser, smtpPass, fromAddr, fromName)
	}
	msg := []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n"+
		"%s",
		fromName, fromAddr, to, subject, body))

	auth := smtp.PlainAuth("", smtpUser, smtpPass, smtpServer)

	err := smtp.SendMail(smtpServer+":"+smtpPort, auth, fromAddr, []string{to}, msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func SendVerificationCode(to string, code string) error {
	subject := "Your verification code"
	body := fmt.Sprintf("Use the code below to verify your contact details at checkout:\n\n%s\n\nThis code expires in 5 minutes.", code)
	return SendEmail(to, subject, body)
}
