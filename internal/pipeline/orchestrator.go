// Package pipeline реализует конвейер генерации.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/artemshloyda/wallgen/internal/actuator"
	"github.com/artemshloyda/wallgen/internal/catalog"
	"github.com/artemshloyda/wallgen/internal/config"
	"github.com/artemshloyda/wallgen/internal/deriv"
	"github.com/artemshloyda/wallgen/internal/inbox"
	"github.com/artemshloyda/wallgen/internal/ingest"
	"github.com/artemshloyda/wallgen/internal/queue"
	"github.com/artemshloyda/wallgen/internal/store"
	"github.com/artemshloyda/wallgen/internal/tagger"
	"github.com/artemshloyda/wallgen/internal/templates"
)

// QueueClient - потребительская сторона клиента очереди ожидания.
type QueueClient interface {
	ClaimNext(ctx context.Context, assignTag string) (*queue.WorkItem, error)
	Count(ctx context.Context, assignTag string) (int, error)
	Complete(ctx context.Context, id string, req queue.CompleteRequest) error
}

// Publisher публикует каталожные записи.
type Publisher interface {
	Publish(ctx context.Context, entry *catalog.Entry) (string, error)
}

// Uploader загружает локальный файл в blob-хранилище.
type Uploader interface {
	Upload(ctx context.Context, localPath, folder, resolution string) (url, blobName string, err error)
}

// Ingestor скачивает и нормализует доставленные изображения.
type Ingestor interface {
	Ingest(ctx context.Context, remoteRef string) (string, error)
}

// Generator создаёт и загружает варианты разрешений.
type Generator interface {
	GenerateAll(ctx context.Context, canonicalPath string) ([]deriv.Derivative, error)
}

// Notifier отправляет сообщения о результатах прогонов.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Ledger ведёт журнал прогонов.
type Ledger interface {
	StartRun(workItemID, sourceURL string) (int64, error)
	UpdateState(runID int64, state store.RunState) error
	FinishOK(runID int64, itemID string) error
	FinishFailed(runID int64, failedAt store.RunState, errMsg string) error
}

// Цели поиска по экрану. Поле ввода ищется с небольшим числом попыток:
// если внешнее приложение не на экране, смысла ждать дольше нет.
// Кнопка увеличения появляется с задержкой доставки, поэтому попыток больше.
var (
	messageBoxTarget = actuator.Target{
		Template:   templates.MessageBox,
		Clicks:     1,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}

	upscaleTarget = actuator.Target{
		Template:   templates.UpscaleButton,
		Clicks:     2,
		ClickDelay: 500 * time.Millisecond,
		MaxRetries: 5,
		RetryDelay: 3 * time.Second,
	}

	// Запасной вид кнопки в расширенной сетке вариантов.
	u4ExtendTarget = actuator.Target{
		Template:   templates.U4Extend,
		Clicks:     2,
		ClickDelay: 500 * time.Millisecond,
		MaxRetries: 2,
		RetryDelay: 3 * time.Second,
	}
)

// Options содержит зависимости и настройки конвейера.
type Options struct {
	Queue    QueueClient
	Catalog  Publisher
	Actuator actuator.Actuator
	Ingestor Ingestor
	Uploader Uploader
	Deriv    Generator
	Tagger   tagger.Tagger
	Notifier Notifier
	Ledger   Ledger
	Logger   *log.Logger

	// AssignTag - тег назначения воркера в очереди.
	AssignTag string

	// PromptSuffix - фиксированные параметры генерации в промпте.
	PromptSuffix string

	// PollInterval - интервал опроса очереди.
	PollInterval time.Duration

	// ItemURLBase - базовый URL для ссылок на каталожные записи.
	ItemURLBase string

	// Publish - значения каталожной записи по умолчанию.
	Publish config.PublishDefaults
}

// Orchestrator управляет конвейером: опрашивает очередь, запускает
// генерацию во внешнем приложении, принимает доставки и публикует результат.
type Orchestrator struct {
	queue    QueueClient
	catalog  Publisher
	actuator actuator.Actuator
	ingestor Ingestor
	uploader Uploader
	deriv    Generator
	tagger   tagger.Tagger
	notifier Notifier
	ledger   Ledger
	logger   *log.Logger

	assignTag    string
	promptSuffix string
	pollInterval time.Duration
	itemURLBase  string
	publish      config.PublishDefaults

	reg     register
	pollNow chan struct{}

	// resolve возвращает разрешение локального изображения.
	// Подменяется в тестах.
	resolve func(localPath string) (string, error)
}

// New создаёт новый Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		queue:        opts.Queue,
		catalog:      opts.Catalog,
		actuator:     opts.Actuator,
		ingestor:     opts.Ingestor,
		uploader:     opts.Uploader,
		deriv:        opts.Deriv,
		tagger:       opts.Tagger,
		notifier:     opts.Notifier,
		ledger:       opts.Ledger,
		logger:       opts.Logger,
		assignTag:    opts.AssignTag,
		promptSuffix: opts.PromptSuffix,
		pollInterval: opts.PollInterval,
		itemURLBase:  strings.TrimRight(opts.ItemURLBase, "/"),
		publish:      opts.Publish,
		pollNow:      make(chan struct{}, 1),
		resolve:      ingest.Resolution,
	}
}

// Current возвращает текущий прогон (nil, если конвейер свободен).
func (o *Orchestrator) Current() *Job {
	return o.reg.current()
}

// Poll опрашивает очередь ожидания и при наличии элементов забирает
// следующий. Если прогон уже идёт, опрос пропускается: конвейер
// обрабатывает не более одного элемента одновременно.
func (o *Orchestrator) Poll(ctx context.Context) {
	if o.reg.current() != nil {
		o.logf("[QUEUE] прогон уже идёт, опрос пропущен")
		return
	}

	// Сначала дешёвый счётчик: забор без проверки оставлял бы
	// элементы в статусе claimed при сбоях разбора.
	n, err := o.queue.Count(ctx, o.assignTag)
	if err != nil {
		o.logf("[QUEUE] не удалось получить счётчик: %v", err)
		return
	}
	if n == 0 {
		return
	}

	item, err := o.queue.ClaimNext(ctx, o.assignTag)
	if errors.Is(err, queue.ErrNoWaiting) {
		return
	}
	if err != nil {
		o.logf("[QUEUE] не удалось забрать элемент: %v", err)
		return
	}

	runID, err := o.ledger.StartRun(item.ID, item.URL)
	if err != nil {
		// Журнал не должен останавливать конвейер.
		o.logf("[QUEUE] не удалось записать прогон в журнал: %v", err)
	}

	job := &Job{
		Item:      item,
		RunID:     runID,
		State:     store.StateClaimed,
		StartedAt: time.Now(),
	}
	if !o.reg.begin(job) {
		o.logf("[QUEUE] конвейер занят, элемент %s останется claimed", item.ID)
		return
	}

	o.logf("[QUEUE] забран элемент %s (%s)", item.ID, item.URL)
	o.trigger(ctx, job)
}

// trigger запускает генерацию во внешнем приложении: активирует поле
// ввода, вводит команду и промпт с исходным URL.
func (o *Orchestrator) trigger(ctx context.Context, job *Job) {
	o.setState(job, store.StateUploading)

	if err := o.actuator.LocateAndActivate(ctx, messageBoxTarget); err != nil {
		o.fail(ctx, job, store.StateUploading, fmt.Errorf("поле ввода: %w", err))
		return
	}

	if err := o.actuator.TypeText(ctx, "/imagine"); err != nil {
		o.fail(ctx, job, store.StateUploading, fmt.Errorf("команда: %w", err))
		return
	}

	prompt := job.Item.URL
	if o.promptSuffix != "" {
		prompt += " " + o.promptSuffix
	}
	if err := o.actuator.TypeText(ctx, prompt); err != nil {
		o.fail(ctx, job, store.StateUploading, fmt.Errorf("промпт: %w", err))
		return
	}

	o.setState(job, store.StateAwaitingThumbnail)
	o.logf("[UI] генерация запущена для %s", job.Item.ID)
}

// HandleDelivery обрабатывает событие доставки изображения.
// События без активного прогона или не соответствующие текущему
// состоянию игнорируются с записью в лог.
func (o *Orchestrator) HandleDelivery(ctx context.Context, evt inbox.Event) {
	job := o.reg.current()
	if job == nil {
		o.logf("[INBOX] доставка %s без активного прогона, пропущена", evt.Filename)
		return
	}

	switch kind := evt.ResolveKind(); kind {
	case inbox.KindThumbnail:
		if job.State != store.StateAwaitingThumbnail {
			o.logf("[INBOX] миниатюра в состоянии %s, пропущена", job.State)
			return
		}
		o.handleThumbnail(ctx, job, evt)

	case inbox.KindUpscaled:
		if job.State != store.StateAwaitingUpscale {
			o.logf("[INBOX] увеличенное изображение в состоянии %s, пропущено", job.State)
			return
		}
		o.handleUpscaled(ctx, job, evt)

	default:
		o.logf("[INBOX] вид доставки %s не распознан, пропущена", evt.Filename)
	}
}

// handleThumbnail принимает сетку вариантов: скачивает, загружает
// миниатюру в blob-хранилище и запускает увеличение.
func (o *Orchestrator) handleThumbnail(ctx context.Context, job *Job, evt inbox.Event) {
	localPath, err := o.ingestor.Ingest(ctx, evt.URL)
	if err != nil {
		o.fail(ctx, job, store.StateAwaitingThumbnail, err)
		return
	}

	res, err := o.resolve(localPath)
	if err != nil {
		o.fail(ctx, job, store.StateAwaitingThumbnail, err)
		return
	}

	url, _, err := o.uploader.Upload(ctx, localPath, "thumbnail", res)
	if err != nil {
		o.fail(ctx, job, store.StateAwaitingThumbnail, fmt.Errorf("загрузка миниатюры: %w", err))
		return
	}
	job.ThumbnailURL = url

	if err := o.clickUpscale(ctx); err != nil {
		o.fail(ctx, job, store.StateAwaitingThumbnail, err)
		return
	}

	o.setState(job, store.StateAwaitingUpscale)
	o.logf("[UI] увеличение запущено для %s", job.Item.ID)
}

// clickUpscale активирует кнопку увеличения. Если основной вид кнопки
// не найден, пробует запасной вид из расширенной сетки.
func (o *Orchestrator) clickUpscale(ctx context.Context) error {
	err := o.actuator.LocateAndActivate(ctx, upscaleTarget)
	if err == nil {
		return nil
	}

	var detErr *actuator.DetectionError
	if !errors.As(err, &detErr) {
		return fmt.Errorf("кнопка увеличения: %w", err)
	}

	o.logf("[UI] основная кнопка не найдена, пробуем запасной вид")
	if err := o.actuator.LocateAndActivate(ctx, u4ExtendTarget); err != nil {
		return fmt.Errorf("кнопка увеличения: %w", err)
	}
	return nil
}

// handleUpscaled принимает финальное изображение: скачивает, генерирует
// варианты разрешений и публикует каталожную запись.
func (o *Orchestrator) handleUpscaled(ctx context.Context, job *Job, evt inbox.Event) {
	localPath, err := o.ingestor.Ingest(ctx, evt.URL)
	if err != nil {
		o.fail(ctx, job, store.StateAwaitingUpscale, err)
		return
	}
	job.UpscalePath = localPath

	res, err := o.resolve(localPath)
	if err != nil {
		o.fail(ctx, job, store.StateAwaitingUpscale, err)
		return
	}

	originURL, _, err := o.uploader.Upload(ctx, localPath, "origin", res)
	if err != nil {
		o.fail(ctx, job, store.StateAwaitingUpscale, fmt.Errorf("загрузка оригинала: %w", err))
		return
	}

	derivatives, derr := o.deriv.GenerateAll(ctx, localPath)
	if len(derivatives) == 0 && derr != nil {
		o.fail(ctx, job, store.StateAwaitingUpscale, fmt.Errorf("варианты разрешений: %w", derr))
		return
	}
	if derr != nil {
		// Частичный набор вариантов публикуем: недостающие можно
		// досоздать командой backfill.
		o.logf("[DERIV] часть вариантов не создана: %v", derr)
	}
	job.Derivatives = derivatives

	o.publishJob(ctx, job, originURL, res)
}

// publishJob собирает каталожную запись, публикует её и завершает
// элемент очереди.
func (o *Orchestrator) publishJob(ctx context.Context, job *Job, originURL, originRes string) {
	if job.ThumbnailURL == "" || job.UpscalePath == "" {
		o.fail(ctx, job, store.StatePublishing,
			fmt.Errorf("публикация без миниатюры или оригинала"))
		return
	}

	o.setState(job, store.StatePublishing)

	title, tags := o.analyze(ctx, job.UpscalePath)
	entry := o.buildEntry(job, title, tags, originURL, originRes)

	itemID, err := o.catalog.Publish(ctx, entry)
	if err != nil {
		o.fail(ctx, job, store.StatePublishing, err)
		return
	}

	itemURL := fmt.Sprintf("%s/item/%s", o.itemURLBase, itemID)

	err = o.queue.Complete(ctx, job.Item.ID, queue.CompleteRequest{
		ItemID:   itemID,
		ItemURL:  itemURL,
		Priority: job.Item.Priority,
		Review:   job.Item.Review,
	})
	if err != nil {
		// Запись уже в каталоге: элемент очереди сверяется вручную
		// по журналу прогонов.
		o.logf("[QUEUE] элемент %s не завершён: %v", job.Item.ID, err)
		o.send(ctx, fmt.Sprintf("⚠️ Опубликовано (itemId=%s), но элемент очереди %s не завершён: %v",
			itemID, job.Item.ID, err))
	} else {
		o.send(ctx, fmt.Sprintf("✅ Опубликовано: %s", itemURL))
	}

	if err := o.ledger.FinishOK(job.RunID, itemID); err != nil {
		o.logf("[QUEUE] не удалось записать успех в журнал: %v", err)
	}

	o.logf("[QUEUE] прогон %d завершён, itemId=%s", job.RunID, itemID)
	o.reg.clear()
	o.requestPoll()
}

// analyze запрашивает заголовок и теги. Отказ сервиса тегов не
// блокирует публикацию: используется заголовок по умолчанию.
func (o *Orchestrator) analyze(ctx context.Context, imagePath string) (string, []string) {
	title, tags, err := o.tagger.Analyze(ctx, imagePath)
	if err != nil || title == "" {
		if err != nil {
			o.logf("[TAGS] сервис тегов недоступен: %v", err)
		}
		return o.publish.Title, nil
	}
	return title, tags
}

// buildEntry собирает каталожную запись из результатов прогона.
func (o *Orchestrator) buildEntry(job *Job, title string, tags []string, originURL, originRes string) *catalog.Entry {
	entry := &catalog.Entry{
		Name:         title,
		Price:        o.publish.Price,
		FreeDownload: o.publish.FreeDownload,
		Stars:        o.publish.Stars,
		PhotoType:    o.publish.PhotoType,
		Tags:         tags,
		Thumbnail:    job.ThumbnailURL,
		Preview:      o.publish.Preview,
		DownloadList: []catalog.DownloadRef{
			{Size: originRes, Ext: "jpg", Link: originURL},
		},
	}

	for _, d := range job.Derivatives {
		entry.ImageList = append(entry.ImageList, catalog.ImageRef{
			Type:       d.Type,
			Resolution: d.Resolution,
			Link:       d.URL,
			Blob:       d.Blob,
		})
		entry.SizeOptions = append(entry.SizeOptions, d.Resolution)

		// Размытый вариант служит превью, если оно не задано явно.
		if entry.Preview == "" && d.Type == "BL" {
			entry.Preview = d.URL
		}
	}

	return entry
}

// fail прерывает прогон: пишет ошибку в журнал, уведомляет оператора
// и освобождает конвейер. Загруженные blob'ы и claim элемента очереди
// не откатываются - они сверяются вручную по журналу.
func (o *Orchestrator) fail(ctx context.Context, job *Job, failedAt store.RunState, cause error) {
	o.logf("[QUEUE] прогон %d прерван на %s: %v", job.RunID, failedAt, cause)

	if err := o.ledger.FinishFailed(job.RunID, failedAt, cause.Error()); err != nil {
		o.logf("[QUEUE] не удалось записать ошибку в журнал: %v", err)
	}

	o.send(ctx, fmt.Sprintf("❌ Прогон %d (%s) прерван на %s: %v",
		job.RunID, job.Item.ID, failedAt, cause))

	o.reg.clear()
}

// setState переводит прогон в новое состояние.
func (o *Orchestrator) setState(job *Job, state store.RunState) {
	job.State = state
	if err := o.ledger.UpdateState(job.RunID, state); err != nil {
		o.logf("[QUEUE] не удалось обновить состояние прогона %d: %v", job.RunID, err)
	}
}

// requestPoll запрашивает немедленный опрос очереди (не блокируя).
func (o *Orchestrator) requestPoll() {
	select {
	case o.pollNow <- struct{}{}:
	default:
	}
}

// send отправляет сообщение оператору.
func (o *Orchestrator) send(ctx context.Context, text string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Send(ctx, text); err != nil {
		o.logf("[NOTIFY] не удалось отправить сообщение: %v", err)
	}
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.logger != nil {
		o.logger.Printf(format, args...)
	}
}
