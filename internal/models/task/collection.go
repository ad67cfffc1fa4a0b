package task

// Collection - упорядоченный по вставке список задач, хранится целиком
type Collection []Task

// MaxID возвращает наибольший id в коллекции или 0 для пустой
func (c Collection) MaxID() int64 {
	var highest int64
	for _, t := range c {
		if t.ID > highest {
			highest = t.ID
		}
	}
	return highest
}

func (c Collection) IndexOf(id int64) int {
	for i, t := range c {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Without возвращает новую коллекцию без задач с указанным id
func (c Collection) Without(id int64) (Collection, int) {
	res := make(Collection, 0, len(c))
	removed := 0
	for _, t := range c {
		if t.ID == id {
			removed++
			continue
		}
		res = append(res, t)
	}
	return res, removed
}
