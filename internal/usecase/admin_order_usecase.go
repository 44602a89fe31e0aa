package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/metrics"
	repo "app/internal/repository"
)

// 許可される前進遷移。
// PROCESSINGは飛ばせるが、SHIPPEDを経ずにDELIVEREDにはできない。
// CANCELEDは非終端からならどこからでも入れる（テーブルとは別に判定）。
var allowedTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusProcessing, model.OrderStatusShipped},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusDelivered},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
}

func canTransition(from model.OrderStatus, to model.OrderStatus) bool {
	if to == from {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == model.OrderStatusCanceled {
		return true
	}
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

type AdminOrderUsecase struct {
	tx repo.TransactionManager
}

func NewAdminOrderUsecase(tx repo.TransactionManager) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 注文詳細（明細スナップショット込み）
func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ステータス更新。変わるのはstatusカラムだけ。
// 同時更新に備えて、行ロック→検証→「現在値が一致するときだけ書く」UPDATEを
// 1トランザクションで行う。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorKey string, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorKey == "" {
		return NewHTTPError(http.StatusForbidden, CodeForbidden, "forbidden")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid id")
	}

	requested := model.OrderStatus(strings.TrimSpace(in.Status))
	switch requested {
	case model.OrderStatusPending, model.OrderStatusProcessing, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCanceled:
		// OK
	default:
		return NewHTTPError(http.StatusBadRequest, CodeInvalidTransition, "invalid status")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得（行ロック）
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}

		if !canTransition(o.Status, requested) {
			return NewHTTPError(http.StatusConflict, CodeInvalidTransition, "invalid transition")
		}

		// 現在値が一致するときだけ書く
		if err := r.Orders().UpdateStatusFrom(ctx, orderID, o.Status, requested); err != nil {
			if err == repo.ErrNotFound {
				//ロック済みなので通常来ないが、来たら競合扱い
				return NewHTTPError(http.StatusConflict, CodeInvalidTransition, "status conflict")
			}
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + string(o.Status) + `"}`
		afterJSON := `{"status":"` + string(requested) + `"}`
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorKey:     actorKey,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}

		return nil
	})

	if err != nil {
		return err
	}

	metrics.OrderStatusUpdates.WithLabelValues(string(requested)).Inc()
	return nil
}

// 監査ログ一覧
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		logs, err = r.AuditLogs().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodePersistenceFailure, "db error")
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return logs, nil
}
