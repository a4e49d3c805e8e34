package config

// Application constants for the GridSeal toolkit.
const (
	AppName    = "GridSeal"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable: GRIDSEAL_*.
	EnvPrefix = "GRIDSEAL"

	// Default file locations, relative to the working directory.
	DefaultLicenseFile    = "license.json"
	DefaultPrivateKeyFile = "keys/gridseal_private.pem"
	DefaultPublicKeyFile  = "keys/gridseal_public.pem"
	DefaultSchemaFile     = "schema/gridseal_fields.yaml"

	// DefaultPassphraseEnvVar is where the issuer and keygen look for the
	// private key passphrase unless the config names another variable.
	DefaultPassphraseEnvVar = "GRIDSEAL_KEY_PASSPHRASE"

	DefaultDataDir = "data"
	DefaultLogsDir = "logs"

	// DefaultKeyBits is the RSA modulus size keygen generates.
	DefaultKeyBits = 2048
)
