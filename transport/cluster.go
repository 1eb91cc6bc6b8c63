package transport

import (
	"strconv"
	"strings"

	"github.com/luma/heosbridge/protocol"
	"github.com/luma/heosbridge/storage"
)

// commandError is a failure reported back to the client as eid/text.
type commandError struct {
	code int
	text string
}

var (
	errUnrecognized       = commandError{1, "Unrecognized Command"}
	errInvalidID          = commandError{2, "ID Not Valid"}
	errMissingArgument    = commandError{3, "Wrong Number of Command Arguments"}
	errNoData             = commandError{4, "Requested data not available"}
	errInvalidCredentials = commandError{6, "Invalid Credentials"}
	errOutOfRange         = commandError{9, "Parameter out of range"}
)

type handlerFunc func(t *TCP, conn *TCPConn, cmd protocol.Command) error

var handlers = map[string]handlerFunc{
	"system/" + protocol.CmdHeartBeat:               (*TCP).heartBeat,
	"system/" + protocol.CmdRegisterForChangeEvents: (*TCP).registerForChangeEvents,
	"system/" + protocol.CmdSignIn:                  (*TCP).signIn,
	"system/" + protocol.CmdSignOut:                 (*TCP).signOut,
	"system/" + protocol.CmdReboot:                  (*TCP).reboot,

	"player/" + protocol.CmdGetPlayers:         (*TCP).getPlayers,
	"player/" + protocol.CmdGetPlayerInfo:      (*TCP).getPlayerInfo,
	"player/" + protocol.CmdGetPlayState:       (*TCP).getPlayState,
	"player/" + protocol.CmdSetPlayState:       (*TCP).setPlayState,
	"player/" + protocol.CmdGetVolume:          (*TCP).getVolume,
	"player/" + protocol.CmdSetVolume:          (*TCP).setVolume,
	"player/" + protocol.CmdGetMute:            (*TCP).getMute,
	"player/" + protocol.CmdSetMute:            (*TCP).setMute,
	"player/" + protocol.CmdGetNowPlayingMedia: (*TCP).getNowPlayingMedia,

	"group/" + protocol.CmdGetGroups:      (*TCP).getGroups,
	"group/" + protocol.CmdSetGroup:       (*TCP).setGroup,
	"group/" + protocol.CmdSetGroupVolume: (*TCP).setGroupVolume,
	"group/" + protocol.CmdSetGroupMute:   (*TCP).setGroupMute,

	"browse/" + protocol.CmdGetMusicSources: (*TCP).getMusicSources,
	"browse/" + protocol.CmdBrowse:          (*TCP).browse,
	"browse/" + protocol.CmdPlayStream:      (*TCP).playStream,
	"browse/" + protocol.CmdAddToQueue:      (*TCP).addToQueue,
}

// musicSources is what browse/get_music_sources answers.
var musicSources = []map[string]string{
	{"name": "Favorites", "type": "heos_service", "sid": protocol.SourceFavorites, "available": "true"},
	{"name": "Playlists", "type": "heos_service", "sid": protocol.SourcePlaylists, "available": "true"},
}

func (t *TCP) dispatch(conn *TCPConn, cmd protocol.Command) error {
	handler, ok := handlers[cmd.ID()]
	if !ok {
		return conn.fail(cmd, errUnrecognized)
	}

	return handler(t, conn, cmd)
}

func (t *TCP) heartBeat(conn *TCPConn, cmd protocol.Command) error {
	return conn.respond(cmd, "", nil)
}

func (t *TCP) registerForChangeEvents(conn *TCPConn, cmd protocol.Command) error {
	enable, ok := cmd.Param(protocol.KeyEnable)
	if !ok {
		return conn.fail(cmd, errMissingArgument)
	}

	switch enable {
	case "on":
		conn.registered.Store(true)
	case "off":
		conn.registered.Store(false)
	default:
		return conn.fail(cmd, errOutOfRange)
	}

	return conn.respond(cmd, echo(cmd), nil)
}

// signIn accepts any user with a password. Like a real coordinator it
// first acknowledges the command as under process.
func (t *TCP) signIn(conn *TCPConn, cmd protocol.Command) error {
	username, hasUser := cmd.Param("un")
	password, hasPassword := cmd.Param("pw")

	if !hasUser || !hasPassword {
		return conn.fail(cmd, errMissingArgument)
	}

	if password == "" {
		return conn.fail(cmd, errInvalidCredentials)
	}

	if err := conn.respond(cmd, "command under process", nil); err != nil {
		return err
	}

	t.userMu.Lock()
	t.user = username
	t.userMu.Unlock()

	signedIn := protocol.EncodeAttributes(protocol.P("signed_in", ""), protocol.P("un", username))
	if err := conn.respond(cmd, signedIn, nil); err != nil {
		return err
	}

	return t.Broadcast(protocol.EventUserChanged, protocol.P("signed_in", ""), protocol.P("un", username))
}

func (t *TCP) signOut(conn *TCPConn, cmd protocol.Command) error {
	t.userMu.Lock()
	t.user = ""
	t.userMu.Unlock()

	if err := conn.respond(cmd, "signed_out", nil); err != nil {
		return err
	}

	return t.Broadcast(protocol.EventUserChanged, protocol.P("signed_out", ""))
}

// reboot answers and then severs every connection.
func (t *TCP) reboot(conn *TCPConn, cmd protocol.Command) error {
	if err := conn.respond(cmd, "", nil); err != nil {
		return err
	}

	go t.Drop()

	return nil
}

func (t *TCP) getPlayers(conn *TCPConn, cmd protocol.Command) error {
	players := t.store.Players()

	payload := make([]map[string]string, 0, len(players))
	for _, p := range players {
		payload = append(payload, p.Info())
	}

	return conn.respond(cmd, "", payload)
}

func (t *TCP) getPlayerInfo(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	return conn.respond(cmd, echo(cmd), p.Info())
}

func (t *TCP) getPlayState(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	return conn.respond(cmd, protocol.EncodeAttributes(
		protocol.P(protocol.KeyPID, p.ID),
		protocol.P(protocol.KeyState, string(p.State)),
	), nil)
}

func (t *TCP) setPlayState(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	value, _ := cmd.Param(protocol.KeyState)
	state, ok := storage.ParsePlayState(value)
	if !ok {
		return conn.fail(cmd, errOutOfRange)
	}

	t.store.UpdatePlayer(p.ID, func(p *storage.Player) bool {
		return p.UpdateState(map[string]string{"state": string(state)})
	})

	if err := conn.respond(cmd, echo(cmd), nil); err != nil {
		return err
	}

	return t.Broadcast(protocol.EventPlayerStateChanged,
		protocol.P(protocol.KeyPID, p.ID),
		protocol.P(protocol.KeyState, string(state)))
}

func (t *TCP) getVolume(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	return conn.respond(cmd, protocol.EncodeAttributes(
		protocol.P(protocol.KeyPID, p.ID),
		protocol.P(protocol.KeyLevel, strconv.Itoa(p.Level)),
	), nil)
}

func (t *TCP) setVolume(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	level, cerr := levelParam(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	var updated storage.Player
	t.store.UpdatePlayer(p.ID, func(p *storage.Player) bool {
		changed := p.UpdateState(map[string]string{"level": level})
		updated = *p
		return changed
	})

	if err := conn.respond(cmd, echo(cmd), nil); err != nil {
		return err
	}

	return t.broadcastVolume(updated)
}

func (t *TCP) getMute(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	return conn.respond(cmd, protocol.EncodeAttributes(
		protocol.P(protocol.KeyPID, p.ID),
		protocol.P(protocol.KeyState, protocol.OnOff(p.Mute)),
	), nil)
}

func (t *TCP) setMute(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	state, cerr := onOffParam(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	var updated storage.Player
	t.store.UpdatePlayer(p.ID, func(p *storage.Player) bool {
		changed := p.UpdateState(map[string]string{"mute": state})
		updated = *p
		return changed
	})

	if err := conn.respond(cmd, echo(cmd), nil); err != nil {
		return err
	}

	return t.broadcastVolume(updated)
}

func (t *TCP) broadcastVolume(p storage.Player) error {
	return t.Broadcast(protocol.EventPlayerVolumeChanged,
		protocol.P(protocol.KeyPID, p.ID),
		protocol.P(protocol.KeyLevel, strconv.Itoa(p.Level)),
		protocol.P(protocol.KeyMute, protocol.OnOff(p.Mute)))
}

func (t *TCP) getNowPlayingMedia(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	return conn.respond(cmd, echo(cmd), p.NowPlaying)
}

func (t *TCP) getGroups(conn *TCPConn, cmd protocol.Command) error {
	groups := t.store.Groups()

	payload := make([]map[string]interface{}, 0, len(groups))
	for _, g := range groups {
		members := make([]map[string]string, 0, len(g.Members))
		for _, pid := range g.Members {
			role := "member"
			if pid == g.Leader {
				role = "leader"
			}

			name := ""
			if p, ok := t.store.Player(pid); ok {
				name = p.Name
			}

			members = append(members, map[string]string{"name": name, "pid": pid, "role": role})
		}

		payload = append(payload, map[string]interface{}{
			"name":    g.Name,
			"gid":     g.ID,
			"players": members,
		})
	}

	return conn.respond(cmd, "", payload)
}

// setGroup groups the listed players under the first one. A single pid
// dissolves the group that player leads.
func (t *TCP) setGroup(conn *TCPConn, cmd protocol.Command) error {
	list, ok := cmd.Param(protocol.KeyPID)
	if !ok || list == "" {
		return conn.fail(cmd, errMissingArgument)
	}

	pids := strings.Split(list, ",")
	names := make([]string, 0, len(pids))

	for _, pid := range pids {
		p, ok := t.store.Player(pid)
		if !ok {
			return conn.fail(cmd, errInvalidID)
		}

		names = append(names, p.Name)
	}

	leader := pids[0]

	// A player belongs to one group at most
	for _, g := range t.store.Groups() {
		for _, pid := range pids {
			if g.HasMember(pid) && g.ID != leader {
				t.store.RemoveGroup(g.ID)
				break
			}
		}
	}

	if len(pids) == 1 {
		t.store.RemoveGroup(leader)
		return conn.respond(cmd, echo(cmd), nil)
	}

	name := strings.Join(names, " + ")
	members := make([]map[string]string, 0, len(pids))
	for n, pid := range pids {
		member := map[string]string{"pid": pid}
		if n == 0 {
			member["role"] = "leader"
		}

		members = append(members, member)
	}

	t.store.UpsertGroup(leader, func(g *storage.Group) bool {
		changed := g.UpdateInfo(map[string]string{"name": name, "leader": leader})
		return g.UpdatePlayers(members) || changed
	})

	return conn.respond(cmd, protocol.EncodeAttributes(
		protocol.P(protocol.KeyGID, leader),
		protocol.P(protocol.KeyName, name),
		protocol.P(protocol.KeyPID, list),
	), nil)
}

func (t *TCP) setGroupVolume(conn *TCPConn, cmd protocol.Command) error {
	g, cerr := t.group(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	level, cerr := levelParam(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	var updated storage.Group
	t.store.UpdateGroup(g.ID, func(g *storage.Group) bool {
		changed := g.UpdateState(map[string]string{"level": level})
		updated = *g
		return changed
	})

	if err := conn.respond(cmd, echo(cmd), nil); err != nil {
		return err
	}

	return t.broadcastGroupVolume(updated)
}

func (t *TCP) setGroupMute(conn *TCPConn, cmd protocol.Command) error {
	g, cerr := t.group(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	state, cerr := onOffParam(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	var updated storage.Group
	t.store.UpdateGroup(g.ID, func(g *storage.Group) bool {
		changed := g.UpdateState(map[string]string{"mute": state})
		updated = *g
		return changed
	})

	if err := conn.respond(cmd, echo(cmd), nil); err != nil {
		return err
	}

	return t.broadcastGroupVolume(updated)
}

func (t *TCP) broadcastGroupVolume(g storage.Group) error {
	return t.Broadcast(protocol.EventGroupVolumeChanged,
		protocol.P(protocol.KeyGID, g.ID),
		protocol.P(protocol.KeyLevel, strconv.Itoa(g.Level)),
		protocol.P(protocol.KeyMute, protocol.OnOff(g.Mute)))
}

func (t *TCP) getMusicSources(conn *TCPConn, cmd protocol.Command) error {
	return conn.respond(cmd, "", musicSources)
}

func (t *TCP) browse(conn *TCPConn, cmd protocol.Command) error {
	sid, ok := cmd.Param(protocol.KeySID)
	if !ok {
		return conn.fail(cmd, errMissingArgument)
	}

	var records []map[string]string
	switch sid {
	case protocol.SourceFavorites:
		records = t.store.Favorites()

	case protocol.SourcePlaylists:
		records = t.store.Playlists()

	default:
		return conn.fail(cmd, errInvalidID)
	}

	if records == nil {
		records = []map[string]string{}
	}

	count := strconv.Itoa(len(records))

	return conn.respond(cmd, protocol.EncodeAttributes(
		protocol.P(protocol.KeySID, sid),
		protocol.P("returned", count),
		protocol.P("count", count),
	), records)
}

// playStream starts a station on a player.
func (t *TCP) playStream(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	sid, hasSID := cmd.Param(protocol.KeySID)
	mid, hasMID := cmd.Param(protocol.KeyMID)
	if !hasSID || !hasMID {
		return conn.fail(cmd, errMissingArgument)
	}

	station, _ := cmd.Param(protocol.KeyName)
	if station == "" {
		station = recordName(t.store.Favorites(), protocol.KeyMID, mid)
	}

	return t.startPlaying(conn, cmd, p.ID, map[string]string{
		"type":    "station",
		"station": station,
		"mid":     mid,
		"sid":     sid,
	})
}

// addToQueue starts a container (a playlist) on a player.
func (t *TCP) addToQueue(conn *TCPConn, cmd protocol.Command) error {
	p, cerr := t.player(cmd)
	if cerr != nil {
		return conn.fail(cmd, *cerr)
	}

	sid, hasSID := cmd.Param(protocol.KeySID)
	cid, hasCID := cmd.Param(protocol.KeyCID)
	if !hasSID || !hasCID {
		return conn.fail(cmd, errMissingArgument)
	}

	album := recordName(t.store.Playlists(), protocol.KeyCID, cid)
	if album == "" {
		return conn.fail(cmd, errNoData)
	}

	return t.startPlaying(conn, cmd, p.ID, map[string]string{
		"type":     "song",
		"album":    album,
		"album_id": cid,
		"sid":      sid,
		"qid":      "1",
	})
}

func (t *TCP) startPlaying(conn *TCPConn, cmd protocol.Command, pid string, media map[string]string) error {
	t.store.UpdatePlayer(pid, func(p *storage.Player) bool {
		changed := p.UpdateMedia(media)
		return p.UpdateState(map[string]string{"state": string(storage.StatePlay)}) || changed
	})

	if err := conn.respond(cmd, echo(cmd), nil); err != nil {
		return err
	}

	if err := t.Broadcast(protocol.EventPlayerStateChanged,
		protocol.P(protocol.KeyPID, pid),
		protocol.P(protocol.KeyState, string(storage.StatePlay))); err != nil {
		return err
	}

	return t.Broadcast(protocol.EventPlayerNowPlayingChanged, protocol.P(protocol.KeyPID, pid))
}

func (t *TCP) player(cmd protocol.Command) (storage.Player, *commandError) {
	pid, ok := cmd.Param(protocol.KeyPID)
	if !ok {
		return storage.Player{}, &errMissingArgument
	}

	p, ok := t.store.Player(pid)
	if !ok {
		return storage.Player{}, &errInvalidID
	}

	return p, nil
}

func (t *TCP) group(cmd protocol.Command) (storage.Group, *commandError) {
	gid, ok := cmd.Param(protocol.KeyGID)
	if !ok {
		return storage.Group{}, &errMissingArgument
	}

	g, ok := t.store.Group(gid)
	if !ok {
		return storage.Group{}, &errInvalidID
	}

	return g, nil
}

func levelParam(cmd protocol.Command) (string, *commandError) {
	value, ok := cmd.Param(protocol.KeyLevel)
	if !ok {
		return "", &errMissingArgument
	}

	level, err := strconv.Atoi(value)
	if err != nil || level < 0 || level > 100 {
		return "", &errOutOfRange
	}

	return value, nil
}

func onOffParam(cmd protocol.Command) (string, *commandError) {
	value, ok := cmd.Param(protocol.KeyState)
	if !ok {
		return "", &errMissingArgument
	}

	if value != "on" && value != "off" {
		return "", &errOutOfRange
	}

	return value, nil
}

func recordName(records []map[string]string, key, value string) string {
	for _, record := range records {
		if record[key] == value {
			return record["name"]
		}
	}

	return ""
}

// echo repeats the command parameters, which is how most responses look.
func echo(cmd protocol.Command) string {
	return protocol.EncodeAttributes(cmd.Params...)
}

func (t *TCPConn) respond(cmd protocol.Command, message string, payload interface{}) error {
	line, err := protocol.EncodeResponse(cmd, message, payload)
	if err != nil {
		return err
	}

	_, err = t.Write(line)
	return err
}

func (t *TCPConn) fail(cmd protocol.Command, cerr commandError) error {
	line, err := protocol.EncodeFailure(cmd, cerr.code, cerr.text)
	if err != nil {
		return err
	}

	_, err = t.Write(line)
	return err
}
