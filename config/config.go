package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is populated once at startup from environment variables.
type Config struct {
	Storage StorageConfig
	Blob    BlobConfig
	Auth    AuthConfig
	CORS    CORSConfig
}

type StorageConfig struct {
	Type           string // filesystem, memory, sqlite, mongodb
	DataDir        string
	DataSourceName string
	MongoURI       string
	MongoDatabase  string
}

type BlobConfig struct {
	Type          string // local, s3, minio; empty means detect
	UploadsDir    string
	MaxUploadSize int64
	S3            S3Config
	MinIO         MinIOConfig
}

type S3Config struct {
	Bucket        string
	Region        string
	PublicBaseURL string
}

type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type AuthConfig struct {
	Required  bool
	JWTSecret string
	GitHub    OAuthClientConfig
	OIDC      OAuthClientConfig
}

// OAuthClientConfig describes an OAuth2 client. IssuerURL is only used by OIDC.
type OAuthClientConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether the client has enough settings to start a login.
func (c OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads the configuration from the environment. Call godotenv.Load first to pick up a
// .env file.
func Load() Config {
	return Config{
		Storage: StorageConfig{
			Type:           getEnv("STORAGE_TYPE", "filesystem"),
			DataDir:        getEnv("DATA_DIR", "./data"),
			DataSourceName: getEnv("DATA_SOURCE_NAME", "recipes.db"),
			MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			MongoDatabase:  getEnv("MONGODB_DATABASE", "recipes"),
		},
		Blob: BlobConfig{
			Type:          strings.ToLower(os.Getenv("BLOB_STORAGE")),
			UploadsDir:    getEnv("UPLOADS_DIR", "./uploads"),
			MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,
			S3: S3Config{
				Bucket:        os.Getenv("S3_BUCKET_NAME"),
				Region:        getEnv("AWS_REGION", "us-east-1"),
				PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
			},
			MinIO: MinIOConfig{
				Endpoint:      os.Getenv("MINIO_ENDPOINT"),
				AccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
				Bucket:        getEnv("MINIO_BUCKET", "recipes"),
				UseSSL:        getEnvBool("MINIO_USE_SSL", false),
				PublicBaseURL: os.Getenv("MINIO_PUBLIC_BASE_URL"),
			},
		},
		Auth: AuthConfig{
			Required:  getEnvBool("AUTH_REQUIRED", false),
			JWTSecret: os.Getenv("JWT_SECRET"),
			GitHub: OAuthClientConfig{
				ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
				ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
				RedirectURL:  os.Getenv("GITHUB_REDIRECT_URL"),
			},
			OIDC: OAuthClientConfig{
				IssuerURL:    os.Getenv("OIDC_ISSUER_URL"),
				ClientID:     os.Getenv("OIDC_CLIENT_ID"),
				ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
				RedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"https://*", "http://*"}),
		},
	}
}

// HasCredentials reports whether all three MinIO credentials are present.
func (c MinIOConfig) HasCredentials() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != ""
}

// BlobBackend resolves which blob store to use. An explicit BLOB_STORAGE wins; otherwise MinIO
// is chosen when its credentials are complete and local disk otherwise.
func (c BlobConfig) BlobBackend() string {
	switch c.Type {
	case "local", "s3", "minio":
		return c.Type
	}
	if c.MinIO.HasCredentials() {
		return "minio"
	}
	return "local"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
