package events

import (
	"github.com/luma/heosbridge/protocol"
)

// Route is the handling a decoded message gets. Every (group, name) pair
// not listed in routes classifies as RouteUnknown.
type Route int

const (
	RouteUnknown Route = iota

	RouteNowPlayingChanged
	RoutePlayerStateChanged
	RoutePlayerVolumeChanged
	RoutePlayersChanged
	RouteGroupsChanged
	RouteUserChanged
	RouteGroupVolumeChanged

	RoutePlayState
	RouteVolume
	RouteMute
	RouteNowPlayingMedia
	RoutePlayerInfo
	RoutePlayers

	RouteGroups

	RouteBrowse

	RouteSignIn
)

type routeKey struct {
	group protocol.Group
	name  string
}

var routes = map[routeKey]Route{
	{protocol.GroupEvent, protocol.EventPlayerNowPlayingChanged}: RouteNowPlayingChanged,
	{protocol.GroupEvent, protocol.EventPlayerStateChanged}:      RoutePlayerStateChanged,
	{protocol.GroupEvent, protocol.EventPlayerVolumeChanged}:     RoutePlayerVolumeChanged,
	{protocol.GroupEvent, protocol.EventPlayersChanged}:          RoutePlayersChanged,
	{protocol.GroupEvent, protocol.EventGroupsChanged}:           RouteGroupsChanged,
	{protocol.GroupEvent, protocol.EventUserChanged}:             RouteUserChanged,
	{protocol.GroupEvent, protocol.EventGroupVolumeChanged}:      RouteGroupVolumeChanged,

	{protocol.GroupPlayer, protocol.CmdGetPlayState}:       RoutePlayState,
	{protocol.GroupPlayer, protocol.CmdGetVolume}:          RouteVolume,
	{protocol.GroupPlayer, protocol.CmdGetMute}:            RouteMute,
	{protocol.GroupPlayer, protocol.CmdGetNowPlayingMedia}: RouteNowPlayingMedia,
	{protocol.GroupPlayer, protocol.CmdGetPlayerInfo}:      RoutePlayerInfo,
	{protocol.GroupPlayer, protocol.CmdGetPlayers}:         RoutePlayers,

	{protocol.GroupGroup, protocol.CmdGetGroups}: RouteGroups,

	{protocol.GroupBrowse, protocol.CmdBrowse}: RouteBrowse,

	{protocol.GroupSystem, protocol.CmdSignIn}: RouteSignIn,
}

// Classify returns the route of a (group, name) pair.
func Classify(group protocol.Group, name string) Route {
	return routes[routeKey{group, name}]
}

var routeNames = map[Route]string{
	RouteUnknown:             "unknown",
	RouteNowPlayingChanged:   "now_playing_changed",
	RoutePlayerStateChanged:  "player_state_changed",
	RoutePlayerVolumeChanged: "player_volume_changed",
	RoutePlayersChanged:      "players_changed",
	RouteGroupsChanged:       "groups_changed",
	RouteUserChanged:         "user_changed",
	RouteGroupVolumeChanged:  "group_volume_changed",
	RoutePlayState:           "play_state",
	RouteVolume:              "volume",
	RouteMute:                "mute",
	RouteNowPlayingMedia:     "now_playing_media",
	RoutePlayerInfo:          "player_info",
	RoutePlayers:             "players",
	RouteGroups:              "groups",
	RouteBrowse:              "browse",
	RouteSignIn:              "sign_in",
}

func (r Route) String() string {
	if name, ok := routeNames[r]; ok {
		return name
	}

	return "unknown"
}
