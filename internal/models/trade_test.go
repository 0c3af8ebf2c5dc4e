package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestTradeStatusTerminality(t *testing.T) {
	cases := []struct {
		status   TradeStatus
		terminal bool
	}{
		{TradeStatusPending, false},
		{TradeStatusAccepted, true},
		{TradeStatusRejected, true},
		{TradeStatusCanceled, true},
	}

	for _, tc := range cases {
		if got := tc.status.IsTerminal(); got != tc.terminal {
			t.Errorf("IsTerminal(%s) = %v, ожидалось %v", tc.status, got, tc.terminal)
		}
	}
}

func TestTradeStatusTransitions(t *testing.T) {
	terminal := []TradeStatus{TradeStatusAccepted, TradeStatusRejected, TradeStatusCanceled}

	// Из pending разрешены все конечные статусы
	for _, to := range terminal {
		if !TradeStatusPending.CanTransitionTo(to) {
			t.Errorf("переход pending -> %s должен быть разрешен", to)
		}
	}

	// Из конечного статуса переходов нет
	for _, from := range terminal {
		for _, to := range append(terminal, TradeStatusPending) {
			if from.CanTransitionTo(to) {
				t.Errorf("переход %s -> %s должен быть запрещен", from, to)
			}
		}
	}

	if TradeStatusPending.CanTransitionTo(TradeStatusPending) {
		t.Error("переход pending -> pending должен быть запрещен")
	}
}

func TestTradeStatusValid(t *testing.T) {
	if !TradeStatusPending.Valid() {
		t.Error("pending должен быть допустимым статусом")
	}
	if TradeStatus("shipped").Valid() {
		t.Error("shipped не является допустимым статусом")
	}
}

func TestTradeCounterparty(t *testing.T) {
	sender := User{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), FirstName: "Аня"}
	receiver := User{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), FirstName: "Боря"}

	trade := Trade{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Sender:     &sender,
		Receiver:   &receiver,
	}

	otherID, other := trade.Counterparty(sender.ID)
	if otherID != receiver.ID || other == nil || other.FirstName != "Боря" {
		t.Errorf("контрагент отправителя: получили %v %v", otherID, other)
	}

	otherID, other = trade.Counterparty(receiver.ID)
	if otherID != sender.ID || other == nil || other.FirstName != "Аня" {
		t.Errorf("контрагент получателя: получили %v %v", otherID, other)
	}
}
