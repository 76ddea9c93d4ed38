package legacyimport_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/repairdesk/repair-service/internal/diagnostics"
	"github.com/repairdesk/repair-service/internal/legacyimport"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/store/memory"
)

const usersCSV = `userID;fio;phone;login;password;type
1;Широков Василий;89210563128;login1;pass1;Менеджер
2;Кудрявцева Ева;89535078985;login2;pass2;Мастер
7;Гусева Виктория;89219567849;login7;pass7;Заказчик
8;;89219567841;login8;pass8;Заказчик
`

const requestsCSV = `requestID;startDate;homeTechType;homeTechModel;problemDescryption;requestStatus;completionDate;repairParts;masterID;clientID
1;2023-06-06;Кондиционер;TCL TAC-12CHSA/TPG-W белый;Не охлаждает воздух;В процессе ремонта;null;;2;7
2;2023-05-05;Кондиционер;Electrolux EACS/I-09HAT/N3_21Y белый;Выключается сам по себе;В процессе ремонта;null;"Фильтр
Датчик";2;7
3;2022-07-07;Увлажнитель воздуха;Xiaomi Smart Humidifier 2;Пар имеет неприятный запах;Завершена;2022-01-03;"Ремкомплект; Клапан";99;7
4;null;Сушилка для рук;Ballu BAHD-1250;Не работает;Новая заявка;null;;null;7
`

const commentsCSV = `commentID;message;masterID;requestID
1;Интересная поломка;2;1
2;Очень странно;2;2
3;;2;3
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		legacyimport.UsersFile:    usersCSV,
		legacyimport.RequestsFile: requestsCSV,
		legacyimport.CommentsFile: commentsCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestRunImportsLegacyData(t *testing.T) {
	s := memory.NewStore()
	im := legacyimport.New(legacyimport.Dependencies{Store: s})

	res, err := im.Run(context.Background(), legacyimport.Options{Dir: writeFixtures(t), BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Equal(t, legacyimport.Result{Users: 3, Requests: 3, Comments: 2, PartLinks: 4, SkippedRow: 3}, res)

	snap := s.ExportState()
	require.Len(t, snap.Users, 3)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(snap.Users[0].PasswordHash), []byte("pass1")))

	byID := map[int64]int{}
	for i, r := range snap.RepairRequests {
		byID[r.ID] = i
	}
	third := snap.RepairRequests[byID[3]]
	assert.Nil(t, third.MasterID, "unknown master is dropped")
	require.NotNil(t, third.RepairPartsLegacy)
	assert.Equal(t, "Ремкомплект; Клапан", *third.RepairPartsLegacy)
	assert.Len(t, snap.SpareParts, 4)

	// imported drift is left for diagnostics
	var findings []diagnostics.Finding
	require.NoError(t, s.View(context.Background(), func(v store.View) error {
		var err error
		findings, err = diagnostics.Run(context.Background(), v)
		return err
	}))
	checks := diagnostics.Counts(findings)
	assert.Equal(t, 1, checks[diagnostics.CheckCompletionBeforeStart])
	assert.Zero(t, checks[diagnostics.CheckLegacyPartsNotMigrated])
}

func TestRunIsRepeatable(t *testing.T) {
	s := memory.NewStore()
	im := legacyimport.New(legacyimport.Dependencies{Store: s})
	dir := writeFixtures(t)
	opts := legacyimport.Options{Dir: dir, BcryptCost: bcrypt.MinCost}

	_, err := im.Run(context.Background(), opts)
	require.NoError(t, err)
	res, err := im.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Requests)
	assert.Zero(t, res.PartLinks)
	assert.Zero(t, res.Comments)

	snap := s.ExportState()
	assert.Len(t, snap.RepairRequests, 3)
	assert.Len(t, snap.RequestSpareParts, 4)
	assert.Len(t, snap.Comments, 2)
}

func TestSkipPartSplitLeavesLegacyText(t *testing.T) {
	s := memory.NewStore()
	im := legacyimport.New(legacyimport.Dependencies{Store: s})

	res, err := im.Run(context.Background(), legacyimport.Options{Dir: writeFixtures(t), SkipPartSplit: true, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Zero(t, res.PartLinks)

	var findings []diagnostics.Finding
	require.NoError(t, s.View(context.Background(), func(v store.View) error {
		var err error
		findings, err = diagnostics.Run(context.Background(), v)
		return err
	}))
	assert.Equal(t, 2, diagnostics.Counts(findings)[diagnostics.CheckLegacyPartsNotMigrated])
}

func TestRunFailsOnMissingFile(t *testing.T) {
	im := legacyimport.New(legacyimport.Dependencies{Store: memory.NewStore()})
	_, err := im.Run(context.Background(), legacyimport.Options{Dir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSplitParts(t *testing.T) {
	assert.Equal(t, []string{"Фильтр", "Датчик"}, legacyimport.SplitParts("Фильтр\n Датчик \n"))
	assert.Equal(t, []string{"A", "B"}, legacyimport.SplitParts("A; ;B"))
	assert.Equal(t, []string{"Mотор"}, legacyimport.SplitParts("  Mотор "))
	assert.Nil(t, legacyimport.SplitParts("   "))
}
