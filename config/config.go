package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Config 结构体用于存储应用程序的配置信息
type Config struct {
	DBHost                string
	DBPort                string
	DBUser                string
	DBPassword            string
	DBName                string
	DBMaxOpenConns        int
	JWTSecret             string
	LogLevel              string
	Port                  string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	MailFrom              string
	FrontendURL           string
	ExportStorage         string // local | s3 | gcs
	LocalStoragePath      string
	S3Region              string
	S3Bucket              string
	GCSBucketName         string
	GCSCredentialsFile    string
	GatewayMaxRetries     int
	GatewayRetryBaseDelay time.Duration
	Debug                 bool // 是否开启调试模式
}

// AppConfig 是全局配置变量
var AppConfig Config

// Init 函数用于初始化配置
func Init() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("警告：无法加载 .env 文件: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("错误：%v", err)
	}
	AppConfig = cfg

	if AppConfig.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("应用程序运行在调试模式")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("应用程序运行在生产模式")
	}

	log.Printf("配置加载完成。数据库：%s:%s，导出存储：%s", AppConfig.DBHost, AppConfig.DBPort, AppConfig.ExportStorage)
}

// Load 从环境变量读取配置并校验
func Load() (Config, error) {
	cfg := Config{
		DBHost:                getEnv("DB_HOST", ""),
		DBPort:                getEnv("DB_PORT", "3306"),
		DBUser:                getEnv("DB_USER", ""),
		DBPassword:            getEnv("DB_PASSWORD", ""),
		DBName:                getEnv("DB_NAME", ""),
		DBMaxOpenConns:        getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Port:                  getEnv("PORT", "8080"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvAsInt("SMTP_PORT", 465),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		MailFrom:              getEnv("MAIL_FROM", ""),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		ExportStorage:         getEnv("EXPORT_STORAGE", "local"),
		LocalStoragePath:      getEnv("LOCAL_STORAGE_PATH", "./exports"),
		S3Region:              getEnv("S3_REGION", "us-west-2"),
		S3Bucket:              getEnv("S3_BUCKET", ""),
		GCSBucketName:         getEnv("GCS_BUCKET_NAME", ""),
		GCSCredentialsFile:    getEnv("GCS_CREDENTIALS_FILE", ""),
		GatewayMaxRetries:     getEnvAsInt("GATEWAY_MAX_RETRIES", 3),
		GatewayRetryBaseDelay: getEnvAsDuration("GATEWAY_RETRY_BASE_DELAY", 200*time.Millisecond),
		Debug:                 getEnvAsBool("DEBUG", false),
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUsername
	}
	return cfg, cfg.validate()
}

// DSN 返回 MySQL 连接串。clientFoundRows 让 RowsAffected 统计匹配行而不是变更行
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&clientFoundRows=true&charset=utf8mb4",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// SMTPEnabled 是否配置了发信服务
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUsername != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}

func (c Config) validate() error {
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return errors.New("数据库配置不完整")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT密钥未设置")
	}
	switch c.ExportStorage {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3 存储桶未设置")
		}
	case "gcs":
		if c.GCSBucketName == "" {
			return errors.New("GCS 存储桶未设置")
		}
	default:
		return fmt.Errorf("不支持的导出存储: %s", c.ExportStorage)
	}
	if c.GatewayMaxRetries < 0 {
		return errors.New("GATEWAY_MAX_RETRIES 不能为负数")
	}
	return nil
}
