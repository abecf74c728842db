package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbkit/sbscan/scanner"
)

// startTestServer brings up a server on a loopback port and returns a
// connected client.
func startTestServer(t *testing.T) (*Client, *scanner.Scanner) {
	t.Helper()

	radio := scanner.NewMockRadio()
	s, err := scanner.New(radio, nil)
	require.NoError(t, err)

	radio.On("Bringup", s).Return(nil).Maybe()
	radio.On("Scan", scanner.DefaultScanParams).Return(nil).Maybe()
	radio.On("CancelScan").Return(nil).Maybe()

	srv := NewServer(NewDispatcher(s, nil), nil)
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	t.Cleanup(func() { _ = srv.Close() })

	client, err := Dial(srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, s
}

func TestServer_RoundTrip(t *testing.T) {
	client, s := startTestServer(t)

	require.NoError(t, client.Ping())

	echoed, err := client.Echo([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, echoed)

	echoed, err = client.Echo(nil)
	require.NoError(t, err)
	assert.Empty(t, echoed)

	// Data operations before start surface the protocol error code.
	_, err = client.Latest()
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, client.StartRadio())

	_, err = client.Latest()
	assert.ErrorIs(t, err, ErrNoData)

	s.OnAdvertisement(scanner.Advertisement{
		Addr: exampleAddr,
		RSSI: -50,
		Data: advFrame(exampleMfg, exampleSvc),
	})

	rec, err := client.Latest()
	require.NoError(t, err)
	assert.Equal(t, exampleAddr, rec.Addr)
	assert.Equal(t, int8(-50), rec.RSSI)
	assert.Equal(t, exampleSvc, rec.Service)
	assert.Equal(t, exampleMfg, rec.Manufacturer)

	rec, err = client.LatestFor(0x8006)
	require.NoError(t, err)
	assert.Equal(t, exampleAddr, rec.Addr)

	_, err = client.LatestFor(0xDEAD)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, client.StopRadio())
}

func TestServer_MultipleClients(t *testing.T) {
	client, _ := startTestServer(t)

	other, err := Dial(client.conn.RemoteAddr().String())
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, client.Ping())
	require.NoError(t, other.Ping())

	// The started flag is shared: a start on one connection is visible on
	// the other.
	require.NoError(t, client.StartRadio())
	err = other.StopRadio()
	assert.NoError(t, err)
}

func TestServer_CloseIsIdempotentish(t *testing.T) {
	radio := scanner.NewMockRadio()
	s, err := scanner.New(radio, nil)
	require.NoError(t, err)

	srv := NewServer(NewDispatcher(s, nil), nil)
	require.NoError(t, srv.Listen("127.0.0.1:0"))

	require.NoError(t, srv.Close())
	assert.ErrorIs(t, srv.Close(), ErrServerClosed)
}
