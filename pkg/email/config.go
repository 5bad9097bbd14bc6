package email

// Config holds outbound email configuration. The Postmark tokens are
// optional so local setups can run with the dev sender; SenderEmail and
// SupportEmail establish the from / reply-to identity for every message.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
