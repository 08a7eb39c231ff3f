package redis_client

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/travigo/dblive/pkg/util"
)

var Client *redis.Client

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

// Configured reports whether a Redis address has been provided
func Configured() bool {
	return util.GetEnvironmentVariable("DBLIVE_REDIS_ADDRESS", "") != ""
}

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["DBLIVE_REDIS_ADDRESS"] != "" {
		address = env["DBLIVE_REDIS_ADDRESS"]
	}

	if env["DBLIVE_REDIS_PASSWORD"] != "" {
		password = env["DBLIVE_REDIS_PASSWORD"]
	}

	if env["DBLIVE_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["DBLIVE_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	Client = redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	return Client.Ping(context.Background()).Err()
}
