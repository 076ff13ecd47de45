package http

import (
	"fmt"
	"time"

	"github.com/vovakirdan/chatroom-server/internal/core"
	"github.com/vovakirdan/chatroom-server/internal/proto"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func inboundToCommand(inbound proto.Inbound) (core.Command, error) {
	switch inbound.Type {
	case proto.InboundTypeNewMessage:
		var msg proto.NewMessageData
		if err := inbound.Bind(&msg); err != nil {
			return core.Command{}, err
		}
		return core.Command{
			Kind:    core.CommandSendMessage,
			ChatID:  msg.ChatID,
			Members: msg.Members,
			Content: msg.Content,
		}, nil
	case proto.InboundTypeStartTyping, proto.InboundTypeStopTyping:
		var typing proto.TypingData
		if err := inbound.Bind(&typing); err != nil {
			return core.Command{}, err
		}
		kind := core.CommandStartTyping
		if inbound.Type == proto.InboundTypeStopTyping {
			kind = core.CommandStopTyping
		}
		return core.Command{
			Kind:    kind,
			ChatID:  typing.ChatID,
			Members: typing.Members,
		}, nil
	case proto.InboundTypeChatJoined, proto.InboundTypeChatLeaved:
		var presence proto.PresenceData
		if err := inbound.Bind(&presence); err != nil {
			return core.Command{}, err
		}
		kind := core.CommandChatJoined
		if inbound.Type == proto.InboundTypeChatLeaved {
			kind = core.CommandChatLeft
		}
		return core.Command{
			Kind:    kind,
			UserID:  presence.UserID,
			Members: presence.Members,
		}, nil
	default:
		return core.Command{}, fmt.Errorf("%w: %s", proto.ErrUnknownEvent, inbound.Type)
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventNewMessage:
		var data proto.EventNewMessageData
		data.ChatID = event.ChatID
		if msg := event.Message; msg != nil {
			data.Message = proto.MessageData{
				ID:      msg.ID,
				Content: msg.Content,
				Sender: proto.SenderData{
					ID:   msg.Sender.ID,
					Name: msg.Sender.Name,
				},
				Chat:      msg.ChatID,
				CreatedAt: formatTime(msg.CreatedAt),
			}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  data,
		}
	case core.EventNewMessageAlert:
		return chatEvent(proto.EventNewMessageAlert, event.ChatID)
	case core.EventStartTyping:
		return chatEvent(proto.EventStartTyping, event.ChatID)
	case core.EventStopTyping:
		return chatEvent(proto.EventStopTyping, event.ChatID)
	case core.EventOnlineUsers:
		online := event.Online
		if online == nil {
			online = []string{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOnlineUsers,
			Data:  online,
		}
	case core.EventRefetchChats:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventRefetchChats}
	case core.EventNewRequest:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventNewRequest}
	default:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "unknown_event", Msg: event.Kind.String()},
		}
	}
}

func chatEvent(name, chatID string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: name,
		Data:  proto.EventChatData{ChatID: chatID},
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
