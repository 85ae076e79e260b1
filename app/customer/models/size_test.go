package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestClassify 测试规模分类边界
func TestClassify(t *testing.T) {
	tests := []struct {
		employees int
		want      Size
	}{
		{0, SizeSmall},
		{1, SizeSmall},
		{50, SizeSmall},
		{100, SizeSmall},
		{101, SizeMedium},
		{500, SizeMedium},
		{1000, SizeMedium},
		{1001, SizeBig},
		{5000, SizeBig},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.employees), "employees=%d", tt.employees)
	}
}
