package email

import (
	"fmt"
	"html"
	"time"
)

// layout wraps body in the shared storefront mail shell. body must already be
// escaped.
func layout(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
    <table role="presentation" style="width: 100%%; border-collapse: collapse;">
        <tr>
            <td align="center" style="padding: 40px 0;">
                <table role="presentation" style="width: 600px; border-collapse: collapse; background-color: #ffffff; border-radius: 8px;">
                    <tr>
                        <td style="padding: 32px 30px; text-align: center; background-color: #B45309; border-radius: 8px 8px 0 0;">
                            <h1 style="margin: 0; color: #ffffff; font-size: 26px;">%s</h1>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 36px 30px; font-size: 16px; line-height: 24px; color: #333333;">%s</td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(title), body)
}

// VerificationCodeTemplate returns the HTML and plain-text bodies carrying the
// six digit code. expiresAt is rendered in its own location.
func VerificationCodeTemplate(name, code string, expiresAt time.Time) (string, string) {
	until := expiresAt.Format("02.01.2006 15:04 MST")
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your verification code is:</p>
<p style="font-size: 32px; font-weight: bold; letter-spacing: 8px; text-align: center;">%s</p>
<p style="font-size: 14px; color: #666666;">The code is valid until %s. If you didn't create an account, you can ignore this email.</p>`,
		html.EscapeString(name), html.EscapeString(code), html.EscapeString(until))

	text := fmt.Sprintf("Hi %s,\n\nYour verification code is %s.\nIt is valid until %s.\n", name, code, until)
	return layout("Verify Your Email", body), text
}

// WelcomeEmailTemplate generates HTML for newly confirmed accounts
func WelcomeEmailTemplate(name string) (string, string) {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your email address is confirmed. Welcome aboard!</p>`, html.EscapeString(name))
	text := fmt.Sprintf("Hi %s,\n\nYour email address is confirmed. Welcome aboard!\n", name)
	return layout("Welcome!", body), text
}

// PasswordChangedEmailTemplate generates HTML for password change notification
func PasswordChangedEmailTemplate(name string) (string, string) {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>The password for your account was just changed.</p>
<p style="font-size: 14px; color: #666666;">If this wasn't you, contact support immediately.</p>`, html.EscapeString(name))
	text := fmt.Sprintf("Hi %s,\n\nThe password for your account was just changed.\nIf this wasn't you, contact support immediately.\n", name)
	return layout("Password Changed", body), text
}
