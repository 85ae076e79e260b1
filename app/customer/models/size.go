package models

// Size 公司规模，按员工数实时计算，不落库
type Size string

const (
	SizeSmall  Size = "Small"
	SizeMedium Size = "Medium"
	SizeBig    Size = "Big"
)

const (
	smallMaxEmployees  = 100
	mediumMaxEmployees = 1000
)

// Classify <=100 Small，101..1000 Medium，>1000 Big
func Classify(employees int) Size {
	switch {
	case employees <= smallMaxEmployees:
		return SizeSmall
	case employees <= mediumMaxEmployees:
		return SizeMedium
	default:
		return SizeBig
	}
}
