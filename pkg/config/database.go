package config

import (
	"context"
	"fmt"
	"time"

	"github.com/kashsbd/awlam-backend/internal/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB holds the database connections. Postgres is nil when POSTGRES_CONN_STR
// is not set; it only backs push delivery receipts.
type DB struct {
	Mongo    *mongo.Client
	Postgres *gorm.DB
	database string
}

// InitDB connects to MongoDB and, when configured, PostgreSQL.
func InitDB(cfg *Config) (*DB, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable not set")
	}

	mongoClient, err := initMongo(cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	db := &DB{Mongo: mongoClient, database: cfg.MongoDatabase}

	if cfg.PostgresURL == "" {
		logger.Log.Warn("POSTGRES_CONN_STR not set, push receipts are disabled")
		return db, nil
	}

	postgresDB, err := initPostgres(cfg.PostgresURL)
	if err != nil {
		db.CloseDB()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	db.Postgres = postgresDB

	return db, nil
}

// Database returns the application database handle.
func (db *DB) Database() *mongo.Database {
	return db.Mongo.Database(db.database)
}

func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	logger.Log.Info("Successfully connected to PostgreSQL")
	return db, nil
}

func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	logger.Log.Info("Successfully connected to MongoDB")
	return client, nil
}

// CloseDB closes the database connections.
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			logger.Log.Error("Error getting SQL DB from GORM", zap.Error(err))
		} else if err := sqlDB.Close(); err != nil {
			logger.Log.Error("Error closing PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("PostgreSQL connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			logger.Log.Error("Error closing MongoDB connection", zap.Error(err))
		} else {
			logger.Log.Info("MongoDB connection closed")
		}
	}
}
