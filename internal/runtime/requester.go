package runtime

import (
	"context"
	"time"

	"lookout/internal/producer"
	"lookout/internal/remote"
	"lookout/internal/types"
)

// API is the slice of the chat service the runtime needs. *remote.Client
// satisfies it.
type API interface {
	Identify(ctx context.Context, credential string) (types.Identity, error)
	ListWorkspaces(ctx context.Context, credential string) ([]types.Workspace, error)
	ListWorkspaceChannels(ctx context.Context, credential, workspaceID string) ([]types.Channel, error)
	ListDirectChannels(ctx context.Context, credential string) ([]types.Channel, error)
	ListMessages(ctx context.Context, credential, channelID string, w remote.Window) ([]types.Message, error)
}

// execute runs one asynchronous request and returns the message the engine
// consumes. Failures come back as APIFailed, never as a dropped request.
func execute(ctx context.Context, api API, req producer.Request) producer.Msg {
	switch req.Op {
	case producer.OpIdentify:
		identity, err := api.Identify(ctx, req.Credential)
		if err != nil {
			return producer.APIFailed{Op: req.Op, Err: err, At: time.Now()}
		}
		return producer.IdentifySucceeded{Credential: req.Credential, Identity: identity}
	case producer.OpHydrate:
		workspaces, channels, err := hydrate(ctx, api, req.Credential)
		if err != nil {
			return producer.APIFailed{Op: req.Op, Err: err, At: time.Now()}
		}
		return producer.HydrateSucceeded{Workspaces: workspaces, Channels: channels}
	case producer.OpFetch:
		messages, err := api.ListMessages(ctx, req.Credential, req.ChannelID, remote.Window{
			Before: req.Query.Before,
			After:  req.Query.After,
			Limit:  req.Query.Limit,
		})
		if err != nil {
			return producer.APIFailed{Op: req.Op, ChannelID: req.ChannelID, Err: err, At: time.Now()}
		}
		return producer.FetchCompleted{ChannelID: req.ChannelID, Messages: messages, At: time.Now()}
	}
	return nil
}

// hydrate composes the full listing: every workspace, every workspace's
// channels, plus direct conversations.
func hydrate(ctx context.Context, api API, credential string) (map[string]types.Workspace, map[string]types.Channel, error) {
	listed, err := api.ListWorkspaces(ctx, credential)
	if err != nil {
		return nil, nil, err
	}
	workspaces := make(map[string]types.Workspace, len(listed))
	channels := make(map[string]types.Channel)
	for _, ws := range listed {
		workspaces[ws.ID] = ws
		wsChannels, err := api.ListWorkspaceChannels(ctx, credential, ws.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, ch := range wsChannels {
			channels[ch.ID] = ch
		}
	}
	direct, err := api.ListDirectChannels(ctx, credential)
	if err != nil {
		return nil, nil, err
	}
	for _, ch := range direct {
		channels[ch.ID] = ch
	}
	return workspaces, channels, nil
}
