package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/walletobjects/v1"

	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

type fakeObjectAPI struct {
	object    *walletobjects.GenericObject
	getErr    error
	updateErr error
	msgErr    error
	classErr  error

	updatedID string
	updated   *walletobjects.GenericObject
	messageID string
	message   *walletobjects.AddMessageRequest
	class     *walletobjects.GenericClass
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, resourceID string) (*walletobjects.GenericObject, error) {
	return f.object, f.getErr
}

func (f *fakeObjectAPI) UpdateObject(ctx context.Context, resourceID string, object *walletobjects.GenericObject) error {
	f.updatedID, f.updated = resourceID, object
	return f.updateErr
}

func (f *fakeObjectAPI) AddMessage(ctx context.Context, resourceID string, req *walletobjects.AddMessageRequest) error {
	f.messageID, f.message = resourceID, req
	return f.msgErr
}

func (f *fakeObjectAPI) InsertClass(ctx context.Context, class *walletobjects.GenericClass) error {
	f.class = class
	return f.classErr
}

func walletCode(t *testing.T, err error) string {
	t.Helper()
	var we *appErrors.WalletError
	require.ErrorAs(t, err, &we)
	return we.GetError()
}

func testKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	return key, strings.ReplaceAll(pemKey, "\n", `\n`)
}

func TestCreatePassSaveLink(t *testing.T) {
	key, escaped := testKey(t)
	now := time.Unix(1700000000, 0)
	m := newManager(&fakeObjectAPI{}, "3388", Credentials{PrivateKey: escaped, ClientEmail: "wallet@svc.example"}, nil)
	m.now = func() time.Time { return now }

	link, err := m.CreatePass(context.Background(), "u1-A001-ING", "3388.student_pass", IssueProps{
		CardTitle:       "Universidad",
		Header:          "Ana",
		TextModulesData: []TextModule{{ID: "primaryLeft", Header: "Total", Body: "100"}},
		LinksModuleData: []LinkModule{{ID: "payment", URI: "https://pay.example"}},
		Barcode:         Barcode{Value: "A001"},
	}, "https://portal.example")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://pay.google.com/gp/v/save/"))

	raw := strings.TrimPrefix(link, "https://pay.google.com/gp/v/save/")
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation())
	require.NoError(t, err)

	assert.Equal(t, "wallet@svc.example", claims["iss"])
	assert.Equal(t, "google", claims["aud"])
	assert.Equal(t, "savetowallet", claims["typ"])
	assert.Equal(t, float64(now.Unix()), claims["iat"])
	assert.Equal(t, []interface{}{"https://portal.example"}, claims["origins"])

	payload := claims["payload"].(map[string]interface{})
	objects := payload["genericObjects"].([]interface{})
	require.Len(t, objects, 1)
	obj := objects[0].(map[string]interface{})
	assert.Equal(t, "3388.u1-A001-ING", obj["id"])
	assert.Equal(t, "3388.student_pass", obj["classId"])
}

func TestCreatePassBadKey(t *testing.T) {
	m := newManager(&fakeObjectAPI{}, "3388", Credentials{PrivateKey: "garbage"}, nil)
	_, err := m.CreatePass(context.Background(), "obj", "cls", IssueProps{}, "https://portal.example")
	assert.Equal(t, "G-003", walletCode(t, err))
}

func TestSendPassNotification(t *testing.T) {
	api := &fakeObjectAPI{}
	m := newManager(api, "3388", Credentials{}, nil)
	m.now = func() time.Time { return time.UnixMilli(1700000000123) }

	require.NoError(t, m.SendPassNotification(context.Background(), "obj", "Pago", "Tu pago vence pronto"))
	assert.Equal(t, "3388.obj", api.messageID)
	assert.Equal(t, "update_message_1700000000123", api.message.Message.Id)
	assert.Equal(t, "TEXT_AND_NOTIFY", api.message.Message.MessageType)
	assert.Equal(t, "Pago", api.message.Message.Header)

	api.msgErr = errors.New("quota")
	assert.Equal(t, "G-002", walletCode(t, m.SendPassNotification(context.Background(), "obj", "h", "b")))
}

func TestUpdatePass(t *testing.T) {
	api := &fakeObjectAPI{object: remoteObject()}
	m := newManager(api, "issuer", Credentials{}, nil)

	require.NoError(t, m.UpdatePass(context.Background(), "obj", UpdateProps{Header: "Luis"}))
	assert.Equal(t, "issuer.obj", api.updatedID)
	assert.Equal(t, "Luis", api.updated.Header.DefaultValue.Value)

	api.updateErr = errors.New("conflict")
	assert.Equal(t, "G-005", walletCode(t, m.UpdatePass(context.Background(), "obj", UpdateProps{})))

	api.getErr = errors.New("not found")
	assert.Equal(t, "G-004", walletCode(t, m.UpdatePass(context.Background(), "obj", UpdateProps{})))
}

func TestCreatePassClass(t *testing.T) {
	api := &fakeObjectAPI{}
	m := newManager(api, "3388", Credentials{}, nil)

	classID, err := m.CreatePassClass(context.Background(), "student_pass")
	require.NoError(t, err)
	assert.Equal(t, "3388.student_pass", classID)
	rows := api.class.ClassTemplateInfo.CardTemplateOverride.CardRowTemplateInfos
	require.Len(t, rows, 2)
	assert.Equal(t, "object.textModulesData['primaryLeft']", rows[0].TwoItems.StartItem.FirstValue.Fields[0].FieldPath)
	assert.Equal(t, "object.textModulesData['secondaryRight']", rows[1].TwoItems.EndItem.FirstValue.Fields[0].FieldPath)

	api.classErr = errors.New("exists")
	_, err = m.CreatePassClass(context.Background(), "student_pass")
	assert.Equal(t, "G-006", walletCode(t, err))
}

func TestNewManagerRejectsBadCredentials(t *testing.T) {
	_, err := NewManager(context.Background(), "3388", []byte("{"), nil)
	assert.Equal(t, "G-001", walletCode(t, err))
}
