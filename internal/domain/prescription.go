package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// prescriptionNamespace — пространство имён для детерминированных токенов рецептов без идентификатора.
var prescriptionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("pharmacy-counter/prescription"))

type MedicationRequest struct {
	Name     string
	Quantity int
}

// Prescription — одноразовый входной документ от источника рецептов.
type Prescription struct {
	ID          string
	Patient     *PatientRef
	Medications []MedicationRequest
}

// Token возвращает ключ однократного погашения рецепта.
// Явный ID глобален. Без ID токен выводится из содержимого в пределах scope (сессии).
func (p Prescription) Token(scope string) string {
	if id := strings.TrimSpace(p.ID); id != "" {
		return id
	}

	meds := make([]string, 0, len(p.Medications))
	for _, m := range p.Medications {
		meds = append(meds, fmt.Sprintf("%s:%d", strings.ToLower(strings.TrimSpace(m.Name)), m.Quantity))
	}
	sort.Strings(meds)

	var b strings.Builder
	if p.Patient != nil {
		b.WriteString(strings.ToLower(strings.TrimSpace(p.Patient.Name)))
		b.WriteByte('|')
		b.WriteString(strings.TrimSpace(p.Patient.ContactNumber))
	}
	b.WriteByte('|')
	b.WriteString(strings.Join(meds, ","))

	return "derived-" + scope + "-" + uuid.NewSHA1(prescriptionNamespace, []byte(b.String())).String()
}
