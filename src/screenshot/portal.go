package screenshot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"floating-dictionary/src/logutil"
)

const (
	portalBusName         = "org.freedesktop.portal.Desktop"
	portalObjectPath      = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	portalScreenshotCall  = "org.freedesktop.portal.Screenshot.Screenshot"
	portalRequestIface    = "org.freedesktop.portal.Request"
	portalResponseSignal  = portalRequestIface + ".Response"
	portalRequestClose    = portalRequestIface + ".Close"
	portalResponseSuccess = 0
	portalResponseCancel  = 1
)

// Portal requests an interactive screenshot from xdg-desktop-portal.
type Portal struct {
	// Connect opens the session bus; nil means dbus.ConnectSessionBus.
	Connect func() (*dbus.Conn, error)
}

func (p *Portal) Kind() Kind { return FreedesktopPortal }

// Capture issues Screenshot(interactive=true) and waits on the Request's
// Response signal. The wait is human paced and ends when the user finishes or
// cancels the selection, or when ctx is done.
func (p *Portal) Capture(ctx context.Context) (*Capture, error) {
	logger := logutil.Component("screenshot")

	connect := p.Connect
	if connect == nil {
		connect = func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() }
	}
	conn, err := connect()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", ErrEnvironmentUnsupported, err)
	}
	defer conn.Close()

	names := conn.Names()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no unique bus name", ErrBackendFailed)
	}
	token := "floatdict" + strings.ReplaceAll(uuid.NewString(), "-", "")
	handle := requestPath(names[0], token)

	// Subscribe before calling so a fast response cannot be missed.
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(handle),
		dbus.WithMatchInterface(portalRequestIface),
		dbus.WithMatchMember("Response"),
	); err != nil {
		return nil, fmt.Errorf("%w: add match: %v", ErrBackendFailed, err)
	}
	signals := make(chan *dbus.Signal, 4)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"interactive":  dbus.MakeVariant(true),
	}
	var reqPath dbus.ObjectPath
	obj := conn.Object(portalBusName, portalObjectPath)
	if err := obj.CallWithContext(ctx, portalScreenshotCall, 0, "", options).Store(&reqPath); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if name := dbusErrorName(err); name == "org.freedesktop.DBus.Error.ServiceUnknown" ||
			name == "org.freedesktop.DBus.Error.UnknownMethod" {
			return nil, fmt.Errorf("%w: %v", ErrEnvironmentUnsupported, err)
		}
		return nil, fmt.Errorf("%w: screenshot call: %v", ErrBackendFailed, err)
	}
	logger.Debug().Str("request", string(reqPath)).Msg("portal screenshot requested")

	for {
		select {
		case <-ctx.Done():
			_ = conn.Object(portalBusName, reqPath).Call(portalRequestClose, 0).Err
			return nil, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil, fmt.Errorf("%w: bus connection closed", ErrBackendFailed)
			}
			if sig.Name != portalResponseSignal || (sig.Path != handle && sig.Path != reqPath) {
				continue
			}
			path, err := parseResponse(sig.Body)
			if err != nil {
				return nil, err
			}
			capture, err := readCapture(path, FreedesktopPortal)
			_ = os.Remove(path)
			return capture, err
		}
	}
}

func dbusErrorName(err error) string {
	var byValue dbus.Error
	if errors.As(err, &byValue) {
		return byValue.Name
	}
	var byRef *dbus.Error
	if errors.As(err, &byRef) && byRef != nil {
		return byRef.Name
	}
	return ""
}

func requestPath(uniqueName, token string) dbus.ObjectPath {
	sender := strings.ReplaceAll(strings.TrimPrefix(uniqueName, ":"), ".", "_")
	return dbus.ObjectPath("/org/freedesktop/portal/desktop/request/" + sender + "/" + token)
}

// parseResponse decodes the (u, a{sv}) body of Request.Response into a local
// file path.
func parseResponse(body []interface{}) (string, error) {
	if len(body) != 2 {
		return "", fmt.Errorf("%w: unexpected response body", ErrBackendFailed)
	}
	code, ok := body[0].(uint32)
	if !ok {
		return "", fmt.Errorf("%w: unexpected response code type", ErrBackendFailed)
	}
	switch code {
	case portalResponseSuccess:
	case portalResponseCancel:
		return "", ErrUserCancelled
	default:
		return "", fmt.Errorf("%w: portal response code %d", ErrBackendFailed, code)
	}

	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return "", fmt.Errorf("%w: unexpected results type", ErrBackendFailed)
	}
	v, ok := results["uri"]
	if !ok {
		return "", fmt.Errorf("%w: response has no uri", ErrBackendFailed)
	}
	uri, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("%w: uri is not a string", ErrBackendFailed)
	}
	return filePathFromURI(uri)
}

func filePathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: bad uri %q: %v", ErrBackendFailed, uri, err)
	}
	if u.Scheme != "file" || u.Path == "" {
		return "", fmt.Errorf("%w: not a file uri: %q", ErrBackendFailed, uri)
	}
	return u.Path, nil
}
