// PickFilter narrows the pick journal listing.
package dto

type PickFilter struct {
	Status string
	Limit  int
	Offset int
}
