package config

// Gateway definition gateway_service YAML structure
type Gateway struct {
	Port string `mapstructure:"port"`
	IP   string `mapstructure:"ip"`

	// JWTSecret 由 YAML 的 ${JWT_SECRET} 佔位符展開
	JWTSecret string `mapstructure:"jwt_secret"`

	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// Converter definition converter_service YAML structure
type Converter struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// Notification definition notification_service YAML structure
type Notification struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

// RabbitMQConfig definition rabbitmq setting
type RabbitMQConfig struct {
	IP            string `mapstructure:"ip"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// StorageConfig definition blob storage setting
// Backend 可選 "minio" 或 "gridfs"
type StorageConfig struct {
	Backend string       `mapstructure:"backend"`
	MinIO   MinIOConfig  `mapstructure:"minio"`
	GridFS  GridFSConfig `mapstructure:"gridfs"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	BucketName    string `mapstructure:"bucket_name"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// GridFSConfig definition mongo gridfs setting
type GridFSConfig struct {
	URI           string `mapstructure:"uri"`
	Database      string `mapstructure:"database"`
	Bucket        string `mapstructure:"bucket"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// WorkerConfig definition worker setting
type WorkerConfig struct {
	// MaxAttempts 暫時性錯誤最多重新投遞次數，超過即轉入 dead-letter queue
	MaxAttempts int `mapstructure:"max_attempts"`
	// TmpDir 轉檔暫存目錄
	TmpDir string `mapstructure:"tmp_dir"`
}

// SMTPConfig definition mail transport setting
type SMTPConfig struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	Address string `mapstructure:"address"`
	// Password 由 YAML 的 ${GMAIL_PASSWORD} 佔位符展開
	Password       string `mapstructure:"password"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}
