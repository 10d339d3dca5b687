package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvInfo 集合服務設定 from .env
type EnvInfo struct {
	// service name
	GatewayService      string
	ConverterService    string
	NotificationService string

	// service ports
	GatewayServicePort string

	// service yaml path
	GatewayYAMLPath      string
	ConverterYAMLPath    string
	NotificationYAMLPath string

	// service log path
	GatewayLogPath      string
	ConverterLogPath    string
	NotificationLogPath string
}

// EnvConfig 集合服務設定
var (
	EnvConfig = initEnv()
	envConfig EnvInfo
	once      sync.Once
	env       string
)

func initEnv() EnvInfo {
	once.Do(func() {

		path, err := GetPath(".env", 5)
		if err != nil {
			log.Printf("Warning: Could not get .env path: %v", err)
		}

		if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		env = os.Getenv("ENV")

		envConfig = EnvInfo{
			GatewayService:      os.Getenv("GATEWAY_SERVICE"),
			ConverterService:    os.Getenv("CONVERTER_SERVICE"),
			NotificationService: os.Getenv("NOTIFICATION_SERVICE"),

			GatewayServicePort: os.Getenv("GATEWAY_SERVICE_PORT"),

			GatewayYAMLPath:      os.Getenv("GATEWAY_SERVICE_YAML"),
			ConverterYAMLPath:    os.Getenv("CONVERTER_SERVICE_YAML"),
			NotificationYAMLPath: os.Getenv("NOTIFICATION_SERVICE_YAML"),

			GatewayLogPath:      os.Getenv("GATEWAY_SERVICE_LOG"),
			ConverterLogPath:    os.Getenv("CONVERTER_SERVICE_LOG"),
			NotificationLogPath: os.Getenv("NOTIFICATION_SERVICE_LOG"),
		}
	})

	return envConfig
}

// IsProduction check run env
func IsProduction() bool {
	return env == "production"
}

// IsLocal check run env
func IsLocal() bool {
	return env == "local"
}

// LoadConfig 加載配置
func LoadConfig[T any](serviceName string, configPath string) T {
	v := viper.New()
	// 設置配置文件基本信息
	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 自動讀取環境變數
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 讀取配置文件
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error loading config file: %v", err)
	}

	// 獲取配置文件的內容
	rawConfig, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		log.Fatalf("Error reading raw config file: %v", err)
	}

	// 替換 ${} 占位符為環境變數的值（GMAIL_ADDRESS / GMAIL_PASSWORD 等秘密走這裡）
	expandedConfig := os.ExpandEnv(string(rawConfig))

	// 使用 Viper 再次解析替換後的配置
	if err := v.ReadConfig(bytes.NewBuffer([]byte(expandedConfig))); err != nil {
		log.Fatalf("Error reading expanded config: %v", err)
	}

	// 解構到 Config 結構
	var cfg T
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Error unmarshaling config: %v", err)
	}
	return cfg
}

// GetPath use fileName loop maxCount find file path
func GetPath(fileName string, maxCount int) (string, error) {
	path := "./" + fileName

	for i := 0; i < maxCount; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = "../" + path
	}
	return "", errors.New(fileName + "can't find path ")
}

// RabbitURL 組合 rabbitmq 連線字串
func RabbitURL(c RabbitMQConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.IP, c.Port)
}
