package repository

import (
	"testing"

	"stockpilot/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestRolePrivileges(t *testing.T) {
	all := model.DefaultPrivileges

	admin := RolePrivileges(model.RoleAdmin, all)
	assert.Len(t, admin, len(all))

	employee := RolePrivileges(model.RoleEmployee, all)
	assert.Len(t, employee, len(all)-len(model.EmployeeExcluded))
	for _, p := range employee {
		assert.False(t, model.EmployeeExcluded[p.Code], p.Code)
	}

	codes := make(map[string]bool)
	for _, p := range employee {
		codes[p.Code] = true
	}
	assert.True(t, codes[model.PrivOrderCreate])
	assert.True(t, codes[model.PrivProductAdjust])
	assert.False(t, codes[model.PrivOrderDelete])
	assert.False(t, codes[model.PrivUserCreate])
}
