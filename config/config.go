package config

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig http server configuration
type WebConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	PublicURL  string `yaml:"public_url"`
	CorsOrigin string `yaml:"cors_origin"`
	PublicDir  string `yaml:"public_dir"`
	Secret     string `yaml:"secret"`
	BodyLimit  string `yaml:"body_limit"`
}

// AdminConfig admin credentials; an empty password disables the admin surface
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TokenTTL int    `yaml:"token_ttl"` // hours
}

// DBConfig database configuration
type DBConfig struct {
	Type     string `yaml:"type"` // sqlite | postgres
	Path     string `yaml:"path"` // sqlite file, relative paths resolve against workdir/data
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// MirrorConfig hosted REST backend used as a best-effort mirror
type MirrorConfig struct {
	URL           string `yaml:"url"`
	Key           string `yaml:"key"`
	ProductsTable string `yaml:"products_table"`
	VisitorsTable string `yaml:"visitors_table"`
	CashbackView  string `yaml:"cashback_view"`
	Timeout       int    `yaml:"timeout"` // seconds
	Workers       int    `yaml:"workers"`
	ResyncSpec    string `yaml:"resync_spec"`
}

// Enabled reports whether the mirror has enough configuration to be used
func (m MirrorConfig) Enabled() bool {
	return strings.TrimSpace(m.URL) != "" && strings.TrimSpace(m.Key) != ""
}

type CacheConfig struct {
	Type     string `yaml:"type"` // memory | redis | none
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl"` // seconds
}

type CartConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

type CheckoutConfig struct {
	WhatsappNumber string `yaml:"whatsapp_number"`
}

type UploadConfig struct {
	Dir     string `yaml:"dir"`
	MaxSize int64  `yaml:"max_size"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system"`
	Web      WebConfig      `yaml:"web"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DBConfig       `yaml:"database"`
	Logger   LogConfig      `yaml:"logger"`
	Mirror   MirrorConfig   `yaml:"mirror"`
	Cache    CacheConfig    `yaml:"cache"`
	Cart     CartConfig     `yaml:"cart"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Upload   UploadConfig   `yaml:"upload"`
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetUploadDir() string {
	if c.Upload.Dir != "" {
		if filepath.IsAbs(c.Upload.Dir) {
			return c.Upload.Dir
		}
		return path.Join(c.System.Workdir, c.Upload.Dir)
	}
	return path.Join(c.System.Workdir, "uploads")
}

// GetSqlitePath resolves the single-file database location
func (c *AppConfig) GetSqlitePath() string {
	p := c.Database.Path
	if p == "" {
		p = "store.db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return path.Join(c.GetDataDir(), p)
}

func (c *AppConfig) GetCartDBPath() string {
	return path.Join(c.GetDataDir(), "carts.bolt")
}

// InitDirs creates the working directories
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetDataDir(), c.GetLogDir(), c.GetUploadDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "iWanted",
		Location: "America/Sao_Paulo",
		Workdir:  "./var",
		Debug:    false,
	},
	Web: WebConfig{
		Host:       "0.0.0.0",
		Port:       3000,
		CorsOrigin: "*",
		PublicDir:  "./public",
		BodyLimit:  "10M",
	},
	Admin: AdminConfig{
		Username: "admin",
		Password: "",
		TokenTTL: 12,
	},
	Database: DBConfig{
		Type:     "sqlite",
		Path:     "store.db",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "iwanted",
		User:     "postgres",
		MaxConn:  50,
		IdleConn: 5,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: false,
		Filename:   "./var/logs/iwanted.log",
	},
	Mirror: MirrorConfig{
		ProductsTable: "products_sheet",
		VisitorsTable: "contador",
		CashbackView:  "vw_cashback",
		Timeout:       10,
		Workers:       8,
		ResyncSpec:    "@every 6h",
	},
	Cache: CacheConfig{
		Type: "memory",
		Addr: "127.0.0.1:6379",
		TTL:  60,
	},
	Cart: CartConfig{
		RetentionDays: 30,
	},
	Checkout: CheckoutConfig{
		WhatsappNumber: "5561992074182",
	},
	Upload: UploadConfig{
		MaxSize: 8 << 20,
	},
}

func cloneDefault() *AppConfig {
	cfg := *DefaultAppConfig
	return &cfg
}

// LoadConfig reads the yaml file when present, then applies environment overrides.
// A .env file in the working directory is loaded first without replacing variables already set.
func LoadConfig(cfile string) (*AppConfig, error) {
	_ = godotenv.Load()

	if cfile == "" {
		cfile = "iwanted.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/iwanted.yml"
	}

	cfg := cloneDefault()
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("IWANTED_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("IWANTED_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("IWANTED_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("HOST", &cfg.Web.Host)
	setEnvIntValue("PORT", &cfg.Web.Port)
	setEnvValue("PUBLIC_URL", &cfg.Web.PublicURL)
	setEnvValue("CORS_ORIGIN", &cfg.Web.CorsOrigin)
	setEnvValue("IWANTED_WEB_PUBLIC_DIR", &cfg.Web.PublicDir)
	setEnvValue("IWANTED_WEB_SECRET", &cfg.Web.Secret)

	setEnvValue("ADMIN_USER", &cfg.Admin.Username)
	setEnvValue("ADMIN_PASS", &cfg.Admin.Password)
	setEnvIntValue("IWANTED_ADMIN_TOKEN_TTL", &cfg.Admin.TokenTTL)

	setEnvValue("IWANTED_DB_TYPE", &cfg.Database.Type)
	setEnvValue("IWANTED_DB_PATH", &cfg.Database.Path)
	setEnvValue("IWANTED_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("IWANTED_DB_PORT", &cfg.Database.Port)
	setEnvValue("IWANTED_DB_NAME", &cfg.Database.Name)
	setEnvValue("IWANTED_DB_USER", &cfg.Database.User)
	setEnvValue("IWANTED_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("IWANTED_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("IWANTED_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("IWANTED_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvValue("SUPABASE_URL", &cfg.Mirror.URL)
	setEnvValue("SUPABASE_ANON_KEY", &cfg.Mirror.Key)
	// the service role key wins over the anon key
	setEnvValue("SUPABASE_SERVICE_ROLE", &cfg.Mirror.Key)
	setEnvValue("SUPABASE_TABLE", &cfg.Mirror.ProductsTable)
	setEnvValue("SUPABASE_VISITORS_TABLE", &cfg.Mirror.VisitorsTable)
	setEnvValue("SUPABASE_CASHBACK_VIEW", &cfg.Mirror.CashbackView)

	setEnvValue("IWANTED_CACHE_TYPE", &cfg.Cache.Type)
	setEnvValue("IWANTED_REDIS_ADDR", &cfg.Cache.Addr)
	setEnvValue("IWANTED_REDIS_PASSWORD", &cfg.Cache.Password)
	setEnvIntValue("IWANTED_REDIS_DB", &cfg.Cache.DB)

	setEnvIntValue("IWANTED_CART_RETENTION_DAYS", &cfg.Cart.RetentionDays)
	setEnvValue("IWANTED_WHATSAPP_NUMBER", &cfg.Checkout.WhatsappNumber)
	setEnvValue("IWANTED_UPLOAD_DIR", &cfg.Upload.Dir)
}

func setEnvValue(name string, val *string) {
	var evalue = strings.TrimSpace(os.Getenv(name))
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = strings.TrimSpace(os.Getenv(name))
	if evalue == "" {
		return
	}
	if b, err := cast.ToBoolE(evalue); err == nil {
		*val = b
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = strings.TrimSpace(os.Getenv(name))
	if evalue == "" {
		return
	}
	if i, err := cast.ToIntE(evalue); err == nil {
		*val = i
	}
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	return err == nil && !info.IsDir()
}
