package database

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Connection definition generic connect setting
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MongoDB definition mongo db
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// MinIOConnection definition minio
type MinIOConnection struct {
	Endpoint   string
	User       string
	Password   string
	BucketName string
	UseSSL     bool

	RetryCount    int
	RetryInterval time.Duration
}

// RedisConnection definition redis
type RedisConnection struct {
	Addr     string
	Password string
	DB       int

	RetryCount    int
	RetryInterval time.Duration
}
