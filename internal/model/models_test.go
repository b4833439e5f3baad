package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameTransactionTypes(t *testing.T) {
	assert.True(t, IsGameTransaction(TxTypeBauCuaBet))
	assert.True(t, IsGameTransaction(TxTypeSquaresRefund))
	assert.False(t, IsGameTransaction(TxTypeDaily))
	assert.False(t, IsGameTransaction(TxTypeInitial))

	types := GameTransactionTypes()
	types[0] = "tampered"
	assert.True(t, IsGameTransaction(TxTypeBauCuaBet))
}
