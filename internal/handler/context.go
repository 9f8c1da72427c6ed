package handler

type ContextKey string

var UserIDCtxKey ContextKey = "userID"
