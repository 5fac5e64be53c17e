package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/budget_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// store instance, Type:$id
func StoreRedis[T any](obj any, id any) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// get from redis, returns nil if the key does not exist
func RetrieveRedis[T any](id any) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// remove an instance, Type:$id
func RemoveRedisItem[T any](id any) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.RemoveRedisKey(key)
}

// store list, TypeList:$budget_id
func StoreRedisList[T any](obj any, budgetId string) error {
	key := GetTypeName[T]() + "List:" + budgetId
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// retrieve a list, returns nil if the key does not exist
func RetrieveRedisList[T any](budgetId string) ([]*T, error) {
	key := GetTypeName[T]() + "List:" + budgetId
	var result []*T
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// clear list, TypeList:$budget_id
func RemoveRedisList[T any](budgetId string) error {
	key := GetTypeName[T]() + "List:" + budgetId
	return config.RemoveRedisKey(key)
}
