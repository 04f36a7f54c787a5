package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
	Exists(key string) (bool, error)
	// SAdd добавляет элементы в множество (список участников викторины)
	SAdd(key string, members ...interface{}) error
	SMembers(key string) ([]string, error)
	SCard(key string) (int64, error)
	Expire(key string, expiration time.Duration) error
}
