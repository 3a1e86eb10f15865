package http

import (
	"net/http"

	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type CounterHandler struct {
	counterUsecase usecase.CounterUC
	logger         logger.Logger
}

func NewCounterHandler(counterUsecase usecase.CounterUC, logger logger.Logger) *CounterHandler {
	return &CounterHandler{counterUsecase: counterUsecase, logger: logger}
}

// fail пишет ошибку и логирует её: 5xx как ошибку, остальное как предупреждение.
func (h *CounterHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, _ := ToHTTPResponse(err)
	if code >= http.StatusInternalServerError {
		h.logger.Errorf(err, "%d %s %s", code, r.Method, r.URL.Path)
	} else {
		h.logger.Warnf("%d %s %s: %s", code, r.Method, r.URL.Path, err.Error())
	}
	WriteError(w, err)
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionId")
}

// openSession
//
//	@Summary		Открыть сессию прилавка
//	@Description	Создаёт сессию оператора и загружает каталог склада
//	@Tags			sessions
//	@Produce		json
//	@Param			X-Operator-ID	header		string			true	"Идентификатор оператора"
//	@Param			X-Operator-Role	header		string			true	"Роль: pharmacist, cashier, viewer"
//	@Success		201				{object}	SessionResponse
//	@Failure		400				{object}	ErrorResponse	"Нет заголовков оператора"
//	@Router			/sessions [post]
func (h *CounterHandler) openSession(w http.ResponseWriter, r *http.Request) {
	operator, err := operatorFromHeaders(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.counterUsecase.OpenSession(r.Context(), operator)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, toSessionResponse(view))
}

// getSession
//
//	@Summary	Состояние сессии
//	@Tags		sessions
//	@Produce	json
//	@Param		sessionId	path		string	true	"ID сессии"
//	@Success	200			{object}	SessionResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/sessions/{sessionId} [get]
func (h *CounterHandler) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.counterUsecase.GetSession(sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSessionResponse(view))
}

// closeSession
//
//	@Summary	Закрыть сессию
//	@Tags		sessions
//	@Param		sessionId	path	string	true	"ID сессии"
//	@Success	204
//	@Failure	409	{object}	ErrorResponse	"Идёт оформление"
//	@Router		/sessions/{sessionId} [delete]
func (h *CounterHandler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.counterUsecase.CloseSession(sessionID(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// searchCatalog
//
//	@Summary		Поиск по каталогу
//	@Description	Регистронезависимый поиск по названию, артикулу и категории. Более новый запрос отменяет старый.
//	@Tags			catalog
//	@Produce		json
//	@Param			sessionId	path		string	true	"ID сессии"
//	@Param			q			query		string	false	"Строка поиска"
//	@Param			stockOnly	query		bool	false	"Только товары в наличии"
//	@Success		200			{array}		ProductResponse
//	@Failure		409			{object}	ErrorResponse	"Запрос вытеснен более новым"
//	@Failure		503			{object}	ErrorResponse	"Каталог не загружен"
//	@Router			/sessions/{sessionId}/catalog [get]
func (h *CounterHandler) searchCatalog(w http.ResponseWriter, r *http.Request) {
	stockOnly, err := parseBoolQuery(r, "stockOnly")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	products, err := h.counterUsecase.SearchCatalog(r.Context(), sessionID(r), r.URL.Query().Get("q"), stockOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponses(products))
}

// addLine
//
//	@Summary	Добавить товар в корзину
//	@Tags		cart
//	@Accept		json
//	@Produce	json
//	@Param		sessionId	path		string			true	"ID сессии"
//	@Param		body		body		AddLineRequest	true	"Товар и количество"
//	@Success	200			{object}	SessionResponse
//	@Failure	409			{object}	ErrorResponse	"Недостаточно остатка"
//	@Router		/sessions/{sessionId}/cart/lines [post]
func (h *CounterHandler) addLine(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ProductID <= 0 {
		h.fail(w, r, e.Wrap("productId", e.ErrMissingFields))
		return
	}

	view, err := h.counterUsecase.AddLine(r.Context(), sessionID(r), req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSessionResponse(view))
}

// updateQuantity
//
//	@Summary		Изменить количество
//	@Description	Количество меньше 1 удаляет строку
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			sessionId	path		string					true	"ID сессии"
//	@Param			productId	path		int						true	"ID товара"
//	@Param			body		body		UpdateQuantityRequest	true	"Новое количество"
//	@Success		200			{object}	SessionResponse
//	@Failure		404			{object}	ErrorResponse	"Строки нет в корзине"
//	@Failure		409			{object}	ErrorResponse	"Недостаточно остатка"
//	@Router			/sessions/{sessionId}/cart/lines/{productId} [patch]
func (h *CounterHandler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req UpdateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Quantity == nil {
		h.fail(w, r, e.Wrap("quantity", e.ErrMissingFields))
		return
	}

	view, err := h.counterUsecase.UpdateQuantity(sessionID(r), productID, *req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSessionResponse(view))
}

// removeLine
//
//	@Summary	Удалить строку
//	@Tags		cart
//	@Produce	json
//	@Param		sessionId	path		string	true	"ID сессии"
//	@Param		productId	path		int		true	"ID товара"
//	@Success	200			{object}	SessionResponse
//	@Router		/sessions/{sessionId}/cart/lines/{productId} [delete]
func (h *CounterHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.counterUsecase.RemoveLine(sessionID(r), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSessionResponse(view))
}

// clearCart
//
//	@Summary	Очистить корзину
//	@Tags		cart
//	@Produce	json
//	@Param		sessionId	path		string	true	"ID сессии"
//	@Success	200			{object}	SessionResponse
//	@Router		/sessions/{sessionId}/cart [delete]
func (h *CounterHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.counterUsecase.ClearCart(sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSessionResponse(view))
}

// setPatient
//
//	@Summary	Указать пациента и примечание
//	@Tags		cart
//	@Accept		json
//	@Produce	json
//	@Param		sessionId	path		string				true	"ID сессии"
//	@Param		body		body		SetPatientRequest	true	"Пациент (null — без пациента)"
//	@Success	200			{object}	SessionResponse
//	@Router		/sessions/{sessionId}/cart/patient [put]
func (h *CounterHandler) setPatient(w http.ResponseWriter, r *http.Request) {
	var req SetPatientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.counterUsecase.SetPatient(sessionID(r), req.Patient.toDomain(), req.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSessionResponse(view))
}

// applyPrescription
//
//	@Summary		Применить рецепт
//	@Description	Сопоставляет назначения с каталогом по точному названию и добавляет найденное в корзину. Рецепт погашается один раз.
//	@Tags			prescriptions
//	@Accept			json
//	@Produce		json
//	@Param			sessionId	path		string				true	"ID сессии"
//	@Param			body		body		PrescriptionRequest	true	"Рецепт"
//	@Success		200			{object}	PrescriptionResponse
//	@Failure		400			{object}	ErrorResponse	"В рецепте нет назначений"
//	@Failure		409			{object}	ErrorResponse	"Рецепт уже погашен"
//	@Router			/sessions/{sessionId}/prescriptions [post]
func (h *CounterHandler) applyPrescription(w http.ResponseWriter, r *http.Request) {
	var req PrescriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := sessionID(r)
	res, err := h.counterUsecase.ApplyPrescription(r.Context(), id, req.toDomain())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.counterUsecase.GetSession(id)
	if err != nil {
		h.logger.Warnf("session %s vanished after prescription: %v", id, err)
		view = nil
	}

	WriteSuccess(w, http.StatusOK, toPrescriptionResponse(res, view))
}

// submitIssue
//
//	@Summary		Оформить выдачу
//	@Description	Передаёт корзину складу. При отказе корзина сохраняется, в details перечислены строки.
//	@Tags			issue
//	@Produce		json
//	@Param			sessionId	path		string	true	"ID сессии"
//	@Success		201			{object}	IssueResponse
//	@Failure		403			{object}	ErrorResponse	"Роль не может оформлять выдачу"
//	@Failure		409			{object}	ErrorResponse	"Склад отклонил строки"
//	@Failure		422			{object}	ErrorResponse	"Корзина пуста"
//	@Failure		503			{object}	ErrorResponse	"Склад недоступен"
//	@Router			/sessions/{sessionId}/issue [post]
func (h *CounterHandler) submitIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := h.counterUsecase.Submit(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, toIssueResponse(issue))
}

// resetIssue
//
//	@Summary	Начать новую выдачу
//	@Tags		issue
//	@Produce	json
//	@Param		sessionId	path		string	true	"ID сессии"
//	@Success	200			{object}	SessionResponse
//	@Failure	409			{object}	ErrorResponse	"Выдача ещё не оформлена"
//	@Router		/sessions/{sessionId}/issue/reset [post]
func (h *CounterHandler) resetIssue(w http.ResponseWriter, r *http.Request) {
	view, err := h.counterUsecase.ResetIssue(sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSessionResponse(view))
}

// cancel
//
//	@Summary	Отменить корзину
//	@Tags		issue
//	@Produce	json
//	@Param		sessionId	path		string	true	"ID сессии"
//	@Success	200			{object}	SessionResponse
//	@Router		/sessions/{sessionId}/cancel [post]
func (h *CounterHandler) cancel(w http.ResponseWriter, r *http.Request) {
	view, err := h.counterUsecase.Cancel(sessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSessionResponse(view))
}

// renderDocument
//
//	@Summary	Документ выдачи
//	@Tags		documents
//	@Produce	json
//	@Param		sessionId	path		string	true	"ID сессии"
//	@Param		format		path		string	true	"full-page или thermal"
//	@Success	200			{object}	DocumentResponse
//	@Failure	400			{object}	ErrorResponse	"Неизвестный формат"
//	@Failure	404			{object}	ErrorResponse	"Нет оформленной выдачи"
//	@Router		/sessions/{sessionId}/issue/documents/{format} [get]
func (h *CounterHandler) renderDocument(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc, err := h.counterUsecase.RenderDocument(sessionID(r), format)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toDocumentResponse(doc))
}

// printDocument
//
//	@Summary	Отправить документ на печать
//	@Tags		documents
//	@Produce	json
//	@Param		sessionId	path		string	true	"ID сессии"
//	@Param		format		path		string	true	"full-page или thermal"
//	@Success	202			{object}	DispatchResponse
//	@Failure	409			{object}	ErrorResponse	"Отправка уже идёт"
//	@Failure	503			{object}	ErrorResponse	"Печать недоступна"
//	@Router		/sessions/{sessionId}/issue/documents/{format}/print [post]
func (h *CounterHandler) printDocument(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.counterUsecase.DispatchDocument(r.Context(), sessionID(r), format)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusAccepted, DispatchResponse{Location: res.Location, Format: string(res.Format)})
}
