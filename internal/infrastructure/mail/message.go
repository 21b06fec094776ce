package mail

import (
	"fmt"
	"html"
	"time"
)

func otpMessageBody(appName, fullName, code string, window time.Duration) string {
	if fullName == "" {
		fullName = "User"
	}
	minutes := int(window.Minutes())
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 50px auto; background-color: #ffffff; padding: 30px; border-radius: 10px;">
    <h1 style="text-align: center; color: #22c55e;">%s</h1>
    <h2 style="text-align: center; color: #22c55e;">Email Verification</h2>
    <p>Hello %s,</p>
    <p>Thank you for signing up! To complete your registration, please use the following One-Time Password (OTP):</p>
    <div style="background-color: #f0fdf4; border: 2px solid #22c55e; border-radius: 8px; padding: 20px; text-align: center; margin: 30px 0;">
      <span style="font-size: 32px; font-weight: bold; color: #22c55e; letter-spacing: 8px;">%s</span>
    </div>
    <p>This OTP is valid for <strong>%d minutes</strong>. Please do not share this code with anyone.</p>
    <p>If you didn't request this verification, please ignore this email.</p>
    <p style="text-align: center; color: #666; font-size: 12px;">This is an automated email, please do not reply.</p>
  </div>
</body>
</html>`, html.EscapeString(appName), html.EscapeString(fullName), code, minutes)
}
