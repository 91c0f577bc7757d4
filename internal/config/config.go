package config

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/poofware/rental-service/internal/constants"
	"github.com/poofware/rental-service/internal/utils"
)

type Config struct {
	OrganizationName    string
	TokenIssuer         string
	AppName             string
	Env                 string
	AppPort             string
	AppUrl              string
	FrontendUrl         string
	DBUrl               string
	StripeSecretKey     string
	StripeWebhookSecret string
	SendgridAPIKey      string
	TwilioAccountSID    string
	TwilioAuthToken     string
	RSAPublicKey        *rsa.PublicKey
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	LDFlag_CORSHighSecurity    bool
	LDFlag_SendgridFromEmail   string
	LDFlag_SendgridSandboxMode bool
	LDFlag_TwilioFromPhone     string
	LDFlag_SendPaymentSMS      bool
	LDFlag_SeedDbWithTestData  bool
	LDFlag_StalePaymentSweep   bool
}

const (
	LDConnectionTimeout = 5 * time.Second
	defaultAppName      = "rental-service"

	defaultOrganizationName = "Rentals"
	defaultTokenIssuer      = "rental-auth"
	defaultFromEmail        = "no-reply@rentals.local"
)

// Overridable with -ldflags "-X .../config.AppName=...".
var (
	AppName             = defaultAppName
	LDServerContextKey  = defaultAppName
	LDServerContextKind = "service"
)

// LoadConfig reads the environment (optionally seeded from a .env file),
// secrets and feature flags. Missing required values are fatal.
func LoadConfig() *Config {
	if err := godotenv.Load(); err == nil {
		utils.Logger.Debug("Loaded environment from .env")
	}

	utils.Logger.Info("Loading config for app: ", AppName)

	env := requireEnv("ENV")
	appUrl := requireEnv("APP_URL_FROM_ANYWHERE")
	appPort := requireEnv("APP_PORT")
	frontendUrl := requireEnv("FRONTEND_URL")

	lookup, closeSecrets := secretLookup(env)
	defer closeSecrets()

	requireSecret := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			utils.Logger.Fatalf("%s not found in secrets", key)
		}
		return v
	}
	optionalSecret := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	pubPEM, err := base64.StdEncoding.DecodeString(requireSecret("RSA_PUBLIC_KEY_BASE64"))
	if err != nil {
		utils.Logger.WithError(err).Fatal("RSA_PUBLIC_KEY_BASE64 is not valid base64")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	cfg := &Config{
		OrganizationName:    envOr("ORGANIZATION_NAME", defaultOrganizationName),
		TokenIssuer:         envOr("TOKEN_ISSUER", defaultTokenIssuer),
		AppName:             AppName,
		Env:                 env,
		AppPort:             appPort,
		AppUrl:              appUrl,
		FrontendUrl:         strings.TrimRight(frontendUrl, "/"),
		DBUrl:               requireSecret("DB_URL"),
		StripeSecretKey:     requireSecret("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: requireSecret("STRIPE_WEBHOOK_SECRET"),
		SendgridAPIKey:      optionalSecret("SENDGRID_API_KEY"),
		TwilioAccountSID:    optionalSecret("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     optionalSecret("TWILIO_AUTH_TOKEN"),
		RSAPublicKey:        pubKey,
	}
	cfg.CheckoutSuccessURL = cfg.FrontendUrl + "/success?session_id=" + constants.CheckoutSessionPlaceholder
	cfg.CheckoutCancelURL = cfg.FrontendUrl + "/cancel"

	loadFlags(cfg, optionalSecret("LD_SDK_KEY"))
	return cfg
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", key)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// secretLookup reads from Bitwarden when BWS_ACCESS_TOKEN is present and
// falls back to the process environment for keys it does not hold.
func secretLookup(env string) (utils.SecretLookup, func()) {
	if os.Getenv("BWS_ACCESS_TOKEN") == "" {
		utils.Logger.Info("BWS_ACCESS_TOKEN not set; reading secrets from environment")
		return utils.EnvSecretLookup, func() {}
	}

	client, err := utils.NewBWSSecretsClient()
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to initialize BWSSecretsClient")
	}

	projectName := fmt.Sprintf("%s-%s", AppName, env)
	secrets, err := client.GetBWSSecrets(projectName)
	if err != nil {
		client.Close()
		utils.Logger.WithError(err).Fatalf("Failed to fetch app secrets from BWS (%s)", projectName)
	}
	return utils.MapSecretLookup(secrets, utils.EnvSecretLookup), client.Close
}

func loadFlags(cfg *Config, sdkKey string) {
	cfg.LDFlag_SendgridFromEmail = envOr("SENDGRID_FROM_EMAIL", defaultFromEmail)
	cfg.LDFlag_SendgridSandboxMode = cfg.Env != "prod"
	cfg.LDFlag_CORSHighSecurity = cfg.Env == "prod"
	cfg.LDFlag_StalePaymentSweep = true

	if sdkKey == "" {
		utils.Logger.Warn("LD_SDK_KEY not configured; using default feature flags")
		return
	}

	ldClient, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	defer ldClient.Close()

	ctx := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)

	boolFlag := func(key string, fallback bool) bool {
		v, err := ldClient.BoolVariation(key, ctx, fallback)
		if err != nil {
			utils.Logger.WithError(err).Fatalf("Error retrieving %s flag", key)
		}
		utils.Logger.Debugf("%s flag: %t", key, v)
		return v
	}
	stringFlag := func(key, fallback string) string {
		v, err := ldClient.StringVariation(key, ctx, fallback)
		if err != nil {
			utils.Logger.WithError(err).Fatalf("Error retrieving %s flag", key)
		}
		if v == "" {
			return fallback
		}
		return v
	}

	cfg.LDFlag_CORSHighSecurity = boolFlag("cors_high_security", cfg.LDFlag_CORSHighSecurity)
	cfg.LDFlag_SendgridFromEmail = stringFlag("sendgrid_from_email", cfg.LDFlag_SendgridFromEmail)
	cfg.LDFlag_SendgridSandboxMode = boolFlag("sendgrid_sandbox_mode", cfg.LDFlag_SendgridSandboxMode)
	cfg.LDFlag_TwilioFromPhone = stringFlag("twilio_from_phone", "")
	cfg.LDFlag_SendPaymentSMS = boolFlag("send_payment_sms", false)
	cfg.LDFlag_SeedDbWithTestData = boolFlag("seed_db_with_test_data", false)
	cfg.LDFlag_StalePaymentSweep = boolFlag("stale_payment_sweep", cfg.LDFlag_StalePaymentSweep)
}
