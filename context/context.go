// Copyright 2022 Molecula Corp (DBA FeatureBase). All rights reserved.

// Package context carries the values describing the import job a call is
// made on behalf of. Every value travels on a context.Context passed down from
// the importer; nothing is kept in process-wide state.
package context

import "context"

// Empty struct to avoid allocations
type contextKeyJobID struct{}
type contextKeyCollectionID struct{}
type contextKeyUserEmail struct{}
type contextKeyToken struct{}

// JobID gets the import job id from the context.
func JobID(ctx context.Context) (jobID string, ok bool) {
	jobID, ok = ctx.Value(contextKeyJobID{}).(string)
	return
}

// WithJobID makes a new context with the job id in the context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, contextKeyJobID{}, jobID)
}

func CollectionID(ctx context.Context) (collectionID string, ok bool) {
	collectionID, ok = ctx.Value(contextKeyCollectionID{}).(string)
	return
}

func WithCollectionID(ctx context.Context, collectionID string) context.Context {
	return context.WithValue(ctx, contextKeyCollectionID{}, collectionID)
}

// UserEmail is the acting user reported to downstream consumers.
func UserEmail(ctx context.Context) (email string, ok bool) {
	email, ok = ctx.Value(contextKeyUserEmail{}).(string)
	return
}

func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, contextKeyUserEmail{}, email)
}

// Token is the bearer credential used when fetching job inputs over HTTP.
func Token(ctx context.Context) (token string, ok bool) {
	token, ok = ctx.Value(contextKeyToken{}).(string)
	return
}

func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKeyToken{}, token)
}
