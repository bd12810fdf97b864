package config

import (
	"os"
	"strconv"
	"time"
)

// App holds the runtime tunables for the speech room service. Everything is
// env-driven with defaults that match the protocol contract, so a bare
// deployment behaves correctly without a config file.
type App struct {
	Port string

	// Room limits.
	MaxRoomParticipants int
	RoomTTL             time.Duration

	// Recording session limits.
	SilenceTimeout     time.Duration
	MaxSessionDuration time.Duration
	ChunkInterval      time.Duration
	ChunkBufferCap     int

	// Recognition stream restart budget: at most RestartBudget transparent
	// restarts within a rolling RestartWindow before the error goes fatal.
	RestartBudget int
	RestartWindow time.Duration

	ConnectTimeout   time.Duration
	FallbackLanguage string
}

func LoadApp() App {
	return App{
		Port:                getEnv("PORT", "8080"),
		MaxRoomParticipants: getEnvInt("MAX_ROOM_PARTICIPANTS", 8),
		RoomTTL:             getEnvDuration("ROOM_TTL", 24*time.Hour),
		SilenceTimeout:      getEnvDuration("SILENCE_TIMEOUT", 10*time.Second),
		MaxSessionDuration:  getEnvDuration("MAX_SESSION_DURATION", 60*time.Second),
		ChunkInterval:       getEnvDuration("CHUNK_INTERVAL", 250*time.Millisecond),
		ChunkBufferCap:      getEnvInt("CHUNK_BUFFER_CAP", 32),
		RestartBudget:       getEnvInt("RECOGNITION_RESTART_BUDGET", 2),
		RestartWindow:       getEnvDuration("RECOGNITION_RESTART_WINDOW", 30*time.Second),
		ConnectTimeout:      getEnvDuration("CONNECT_TIMEOUT", 15*time.Second),
		FallbackLanguage:    getEnv("FALLBACK_LANGUAGE", "en-US"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
