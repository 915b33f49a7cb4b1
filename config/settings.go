// config/settings.go
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds the process configuration read from the environment
type Settings struct {
	Port       string `envconfig:"PORT" default:"8080"`
	Env        string `envconfig:"ENV" default:"production"`
	MongoURI   string `envconfig:"MONGO_URI"`
	MongoDBURI string `envconfig:"MONGODB_URI"`
	DBName     string `envconfig:"DB_NAME" default:"homeservices"`
	JWTSecret  string `envconfig:"JWT_SECRET"`

	// MongoTransactions groups message writes in a transaction. Needs a replica set.
	MongoTransactions bool `envconfig:"MONGO_TRANSACTIONS" default:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisChannel  string `envconfig:"REDIS_CHANNEL" default:"realtime:events"`

	FirebaseCredentialsBase64 string `envconfig:"FIREBASE_CREDENTIALS_BASE64"`
	FirebaseCredentialsFile   string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseProjectID         string `envconfig:"FIREBASE_PROJECT_ID"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"marketplace.events"`

	DispatchQueueSize int `envconfig:"DISPATCH_QUEUE_SIZE" default:"1024"`
	DispatchWorkers   int `envconfig:"DISPATCH_WORKERS" default:"4"`

	OfferValidityHours int `envconfig:"OFFER_DEFAULT_VALIDITY_HOURS" default:"168"`
}

// Load reads Settings from the environment, applying defaults
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, err
	}
	if s.MongoURI == "" {
		s.MongoURI = s.MongoDBURI
	}
	if s.MongoURI == "" && s.IsDevelopment() {
		s.MongoURI = "mongodb://localhost:27017"
	}
	return s, nil
}

// IsDevelopment reports whether ENV names a development setup
func (s Settings) IsDevelopment() bool {
	return s.Env == "development" || s.Env == "dev"
}

// OfferValidity is how long an accepted price stays bookable by default
func (s Settings) OfferValidity() time.Duration {
	return time.Duration(s.OfferValidityHours) * time.Hour
}
