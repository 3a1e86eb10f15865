package domain

// StoredObject описывает объект, который передаётся во внешнее хранилище документов.
type StoredObject struct {
	ObjectKey   string
	Data        []byte
	ContentType string            // Example: "application/json"
	Metadata    map[string]string // пользовательские метаданные объекта
}

func NewStoredObject(objectKey string, data []byte, contentType string, metadata map[string]string) *StoredObject {
	return &StoredObject{
		ObjectKey:   objectKey,
		Data:        data,
		ContentType: contentType,
		Metadata:    metadata,
	}
}
