package repository

import "errors"

// ErrNotFound возвращается хранилищем, когда блоба с таким ключом ещё нет
var ErrNotFound = errors.New("блоб не найден")

// ErrInvalidKey - ключ нельзя безопасно отобразить на файл/строку/ключ redis
var ErrInvalidKey = errors.New("недопустимый ключ блоба")
