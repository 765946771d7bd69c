package domain

import (
	"errors"
)

var (
	MessageSuccessGetSubscriptions = "success get subscriptions"
	MessageSuccessSubscribe        = "subscribed successfully"
	MessageSuccessUnsubscribe      = "unsubscribed successfully"

	MessageFailedGetSubscriptions = "failed to get subscriptions"
	MessageFailedSubscribe        = "failed to subscribe"
	MessageFailedUnsubscribe      = "failed to unsubscribe"

	ErrSelfFollow       = errors.New("cannot subscribe to yourself")
	ErrAlreadyFollowing = errors.New("already subscribed to this author")
	ErrNotFollowing     = errors.New("not subscribed to this author")
)

type (
	// SubscriptionResponse is a followed author together with a (possibly
	// truncated) sample of their recipes.
	SubscriptionResponse struct {
		ID           string                `json:"id"`
		Email        string                `json:"email"`
		Username     string                `json:"username"`
		FirstName    string                `json:"first_name"`
		LastName     string                `json:"last_name"`
		IsSubscribed bool                  `json:"is_subscribed"`
		Recipes      []ShortRecipeResponse `json:"recipes"`
		RecipesCount int64                 `json:"recipes_count"`
	}
)
