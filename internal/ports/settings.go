package ports

// Setting keys read by the ingestion worker at run time.
const (
	SettingWebhookURL = "webhook_url"
	SettingAuthToken  = "auth_token"
)

// Settings is the read-only configuration store consulted at the start of
// each run.
type Settings interface {
	Get(key, def string) string
}
