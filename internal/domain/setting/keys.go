package setting

// Known setting keys. Carrier and email credentials live here so that operators
// can rotate them from the admin panel without a redeploy.
const (
	InPostEnabled        = "inpost.enabled"
	InPostAPIURL         = "inpost.api_url"
	InPostAPIToken       = "inpost.api_token"
	InPostOrganizationID = "inpost.organization_id"
	InPostSendingMethod  = "inpost.sending_method"
	InPostSenderEmail    = "inpost.sender_email"
	InPostSenderPhone    = "inpost.sender_phone"

	GLSEnabled      = "gls.enabled"
	GLSAPIURL       = "gls.api_url"
	GLSUsername     = "gls.username"
	GLSPassword     = "gls.password"

	EmailProvider     = "email.provider"
	EmailFrom         = "email.from"
	EmailFromName     = "email.from_name"
	EmailAdminAddress = "email.admin_address"
	EmailAPIURL       = "email.api_url"
	EmailAPIKey       = "email.api_key"

	SMTPHost     = "smtp.host"
	SMTPPort     = "smtp.port"
	SMTPUsername = "smtp.username"
	SMTPPassword = "smtp.password"

	SMSEnabled    = "sms.enabled"
	SMSAPIURL     = "sms.api_url"
	SMSAPIToken   = "sms.api_token"
	SMSSenderName = "sms.sender_name"
)

// Key prefixes read as a group by integrations
const (
	PrefixInPost = "inpost."
	PrefixGLS    = "gls."
	PrefixEmail  = "email."
	PrefixSMTP   = "smtp."
	PrefixSMS    = "sms."
)
