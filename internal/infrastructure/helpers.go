package infrastructure

import (
	"fmt"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
)

// DocumentContentType — документы передаются печатному коллаборатору как JSON-дерево разделов.
const DocumentContentType = "application/json"

// DocumentObjectKey возвращает ключ объекта документа: issues/<номер выдачи>/<формат>.json.
func DocumentObjectKey(issueNumber string, format domain.Format) string {
	return fmt.Sprintf("issues/%s/%s.json", issueNumber, format)
}
