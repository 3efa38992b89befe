package api

// Request bodies of the HTTP API.

type createListRequest struct {
	Title       string  `json:"title" validate:"required,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	// IsPublic defaults to true when omitted.
	IsPublic *bool `json:"is_public"`
}

type updateListRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	IsPublic    *bool   `json:"is_public"`
}

type addItemRequest struct {
	SetNum string `json:"set_num" validate:"required,notblank,max=32"`
}

type reorderListsRequest struct {
	ListIDs []int64 `json:"list_ids" validate:"required,max=1000,dive,gt=0"`
}

type reorderItemsRequest struct {
	SetNums []string `json:"set_nums" validate:"required,max=10000,dive,required,max=32"`
}
