package stdlib

import (
	"fmt"

	"github.com/gorilla/websocket"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// RegisterNet installs the DOMAIN STACK's net library (ws_dial/
// ws_send/ws_recv/ws_close), namespaced under "net", wrapping a
// *websocket.Conn behind an owning UserInfo handle.
func RegisterNet(vm *vmcore.VM) {
	vm.GetClasses().AddLibCFuncs("net", map[string]value.NativeFn{
		"ws_dial": func(args []value.Value, _ any) (value.Value, error) {
			url, err := argString(args, 0, "ws_dial")
			if err != nil {
				return value.Nil(), err
			}
			conn, _, derr := websocket.DefaultDialer.Dial(string(value.Bytes(url)), nil)
			if derr != nil {
				return value.Nil(), fmt.Errorf("ws_dial: %v", derr)
			}
			return value.NewUserInfo(conn, func(p any) { p.(*websocket.Conn).Close() }), nil
		},
		"ws_send": func(args []value.Value, _ any) (value.Value, error) {
			conn, err := argConn(args, 0, "ws_send")
			if err != nil {
				return value.Nil(), err
			}
			msg, err := argString(args, 1, "ws_send")
			if err != nil {
				return value.Nil(), err
			}
			if werr := conn.WriteMessage(websocket.TextMessage, value.Bytes(msg)); werr != nil {
				return value.Nil(), fmt.Errorf("ws_send: %v", werr)
			}
			return value.Int(0), nil
		},
		"ws_recv": func(args []value.Value, _ any) (value.Value, error) {
			conn, err := argConn(args, 0, "ws_recv")
			if err != nil {
				return value.Nil(), err
			}
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return value.Nil(), fmt.Errorf("ws_recv: %v", rerr)
			}
			return value.NewStringNoCopy(data), nil
		},
		"ws_close": func(args []value.Value, _ any) (value.Value, error) {
			conn, err := argConn(args, 0, "ws_close")
			if err != nil {
				return value.Nil(), err
			}
			if cerr := conn.Close(); cerr != nil {
				return value.Nil(), fmt.Errorf("ws_close: %v", cerr)
			}
			return value.Int(0), nil
		},
	})
}

func argConn(args []value.Value, i int, fn string) (*websocket.Conn, error) {
	if i >= len(args) || args[i].Kind() != value.TagUserInfo {
		return nil, fmt.Errorf("%s: argument %d must be a websocket connection handle", fn, i+1)
	}
	conn, ok := value.UserInfoPayload(args[i]).(*websocket.Conn)
	if !ok {
		return nil, fmt.Errorf("%s: argument %d is not a websocket connection handle", fn, i+1)
	}
	return conn, nil
}
