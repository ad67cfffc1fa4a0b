package service

import (
	"encoding/json"
	"taskboard/internal/models/task"
)

type sequence struct {
	LastID int64 `json:"lastId"`
}

// decodedCollection - результат разбора блоба коллекции
type decodedCollection struct {
	Tasks task.Collection
	// Skipped - элементы массива, которые не разобрались как задача
	Skipped int
	// SkippedMaxID - наибольший id среди отброшенных элементов, если его удалось прочитать
	SkippedMaxID int64
}

func encodeCollection(tasks task.Collection) ([]byte, error) {
	if tasks == nil {
		tasks = task.Collection{}
	}
	return json.MarshalIndent(tasks, "", "  ")
}

// decodeCollection ошибается, только если блоб не JSON-массив; null считается пустым массивом.
// Элементы разбираются по одному: испорченный элемент отбрасывается, остальные задачи сохраняются.
func decodeCollection(data []byte) (decodedCollection, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return decodedCollection{}, err
	}

	res := decodedCollection{Tasks: make(task.Collection, 0, len(elements))}
	for _, raw := range elements {
		var t task.Task
		if string(raw) == "null" || json.Unmarshal(raw, &t) != nil {
			res.Skipped++
			res.SkippedMaxID = max(res.SkippedMaxID, looseID(raw))
			continue
		}
		res.Tasks = append(res.Tasks, t)
	}
	return res, nil
}

// looseID достаёт id из элемента, который не разобрался целиком: число или строка с числом
func looseID(raw json.RawMessage) int64 {
	var holder struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &holder); err != nil {
		return 0
	}
	id, err := holder.ID.Int64()
	if err != nil {
		return 0
	}
	return id
}

func encodeSequence(lastID int64) ([]byte, error) {
	return json.MarshalIndent(sequence{LastID: lastID}, "", "  ")
}

func decodeSequence(data []byte) (int64, error) {
	var seq sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return 0, err
	}
	return seq.LastID, nil
}
