package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-client/internal/api"
	"github.com/rajivgeraev/flippy-client/internal/chat"
	"github.com/rajivgeraev/flippy-client/internal/config"
	"github.com/rajivgeraev/flippy-client/internal/feed"
	"github.com/rajivgeraev/flippy-client/internal/models"
	"github.com/rajivgeraev/flippy-client/internal/poll"
	"github.com/rajivgeraev/flippy-client/internal/session"
	"github.com/rajivgeraev/flippy-client/internal/trade"
	"github.com/rajivgeraev/flippy-client/internal/upload"
)

// app связывает все клиентские компоненты консольного интерфейса
type app struct {
	cfg       *config.Config
	sess      *session.Session
	client    *api.Client
	trades    *trade.Service
	directory *chat.Directory
	favCache  *feed.FavoriteCache
	uploads   *upload.Service
	scheduler *poll.Scheduler

	publicFeed *feed.Feed[models.Listing]

	conversation *chat.Conversation
	convTask     *poll.Task
}

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	store := session.NewStore(cfg.SessionFile)
	sess := session.New(cfg, store)

	client := api.New(cfg.APIBaseURL,
		api.WithTokenSource(sess.Token),
		api.WithUnauthorizedHandler(sess.MarkExpired),
	)
	sess.UseClient(client)

	// Вне Telegram данные запуска подписываются токеном бота локально
	if !cfg.IsDevelopment() && cfg.TelegramBotToken != "" {
		payload, err := session.MockInitData(cfg.TelegramBotToken, 99281932, "Local", "local_user", time.Now())
		if err != nil {
			log.Fatalf("❌ Не удалось собрать данные запуска: %v", err)
		}
		sess.SetLaunchPayload(payload)
	}

	ctx := context.Background()
	user, err := sess.Authenticate(ctx)
	if err != nil {
		log.Fatalf("❌ Ошибка аутентификации: %v", err)
	}
	log.Printf("✅ Вошли как %s %s (%s)", user.FirstName, user.LastName, user.ID)

	a := &app{
		cfg:       cfg,
		sess:      sess,
		client:    client,
		trades:    trade.NewService(client, sess),
		directory: chat.NewDirectory(client, sess),
		favCache:  feed.NewFavoriteCache(client),
		scheduler: poll.NewScheduler(),
	}
	a.favCache.BindSession(sess)
	a.publicFeed = feed.New(func(ctx context.Context, offset int) (feed.Page[models.Listing], error) {
		page, err := client.GetPublicListings(ctx, offset)
		if err != nil {
			return feed.Page[models.Listing]{}, err
		}
		return feed.Page[models.Listing]{Items: page.Listings, Total: page.Total, Limit: page.Limit}, nil
	})

	if cfg.CloudinaryConfig.CloudName != "" {
		a.uploads, err = upload.NewService(cfg, client)
		if err != nil {
			log.Printf("⚠️ Загрузка изображений недоступна: %v", err)
		}
	}

	// Истекшая сессия аутентифицируется заново в фоне
	sess.OnExpired(func() {
		go func() {
			if _, err := sess.Authenticate(context.Background()); err != nil {
				log.Printf("Ошибка повторной аутентификации: %v", err)
			}
		}()
	})

	// Список чатов обновляется фоновым опросом и дополняется
	// проекциями принятых обменов
	a.scheduler.Every("chats", chat.ListPollInterval, func(ctx context.Context) error {
		err := a.directory.Refresh(ctx)
		a.directory.ApplyTradeThreads(a.trades.ChatThreads())
		return err
	})
	defer a.scheduler.Stop()

	a.repl(ctx)
}

// repl читает команды из стандартного ввода до exit или конца потока
func (a *app) repl(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Введите help для списка команд")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "exit" || fields[0] == "quit" {
			return
		}
		if err := a.dispatch(ctx, fields); err != nil {
			fmt.Printf("Ошибка: %v\n", err)
		}
	}
}

func (a *app) dispatch(ctx context.Context, fields []string) error {
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		printHelp()
	case "me":
		a.cmdMe()
	case "listings":
		return a.cmdListings(ctx)
	case "more":
		return a.cmdMore(ctx)
	case "my":
		return a.cmdMy(ctx, args)
	case "favorites":
		return a.cmdFavorites(ctx)
	case "fav":
		return a.cmdFav(ctx, args)
	case "trades":
		return a.cmdTrades(ctx, args)
	case "propose":
		return a.cmdPropose(ctx, args)
	case "accept":
		return a.cmdRespond(ctx, args, models.TradeStatusAccepted)
	case "reject":
		return a.cmdRespond(ctx, args, models.TradeStatusRejected)
	case "cancel":
		return a.cmdCancel(ctx, args)
	case "chats":
		return a.cmdChats(ctx)
	case "open":
		return a.cmdOpen(ctx, args)
	case "older":
		return a.cmdOlder(ctx)
	case "send":
		return a.cmdSend(ctx, args)
	case "close":
		a.cmdClose()
	case "logout":
		a.sess.SignOut()
		fmt.Println("Сессия завершена")
	default:
		fmt.Println("Неизвестная команда, введите help")
	}
	return nil
}

func printHelp() {
	fmt.Println(`Команды:
  me                              текущий пользователь
  listings                        первая страница публичных объявлений
  more                            следующая страница
  my [status]                     свои объявления (all/active/draft)
  favorites                       избранное
  fav <listing_id>                добавить/убрать из избранного
  trades [type] [status]          предложения обмена
  propose <listing_id> <my_listing_id|sale> [текст]
  accept|reject|cancel <trade_id>
  chats                           список чатов
  open <chat_id>                  открыть чат
  older                           подгрузить историю
  send <текст>                    отправить сообщение
  close                           закрыть чат
  logout / exit`)
}

func (a *app) cmdMe() {
	user, ok := a.sess.Current()
	if !ok {
		fmt.Println("Сессия не аутентифицирована")
		return
	}
	fmt.Printf("%s %s (@%s) %s\n", user.FirstName, user.LastName, user.Username, user.ID)
}

func (a *app) cmdListings(ctx context.Context) error {
	if err := a.publicFeed.Reload(ctx); err != nil {
		return err
	}
	a.printFeed()
	return nil
}

func (a *app) cmdMore(ctx context.Context) error {
	if err := a.publicFeed.LoadMore(ctx); err != nil {
		return err
	}
	a.printFeed()
	return nil
}

func (a *app) printFeed() {
	items := a.publicFeed.Items()
	for _, l := range items {
		fmt.Printf("  %s  %-30s [%s]\n", l.ID, l.Title, l.Condition)
	}
	fmt.Printf("Показано %d из %d", len(items), a.publicFeed.Total())
	if a.publicFeed.HasMore() {
		fmt.Print(", more для продолжения")
	}
	fmt.Println()
}

func (a *app) cmdMy(ctx context.Context, args []string) error {
	status := "all"
	if len(args) > 0 {
		status = args[0]
	}
	page, err := a.client.GetMyListings(ctx, status, 0)
	if err != nil {
		return err
	}
	for _, l := range page.Listings {
		fmt.Printf("  %s  %-30s [%s] %s\n", l.ID, l.Title, l.Status, l.Condition)
	}
	fmt.Printf("Всего: %d\n", page.Total)
	return nil
}

func (a *app) cmdFavorites(ctx context.Context) error {
	page, err := a.client.GetFavorites(ctx, 0)
	if err != nil {
		return err
	}
	for _, f := range page.Favorites {
		title := ""
		if f.Listing != nil {
			title = f.Listing.Title
			a.favCache.Put(f.ListingID, f.ID, true)
		}
		fmt.Printf("  %s  %s\n", f.ListingID, title)
	}
	fmt.Printf("Всего: %d\n", page.Total)
	return nil
}

func (a *app) cmdFav(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	isFavorite, err := a.favCache.Toggle(ctx, id)
	if err != nil {
		return err
	}
	if isFavorite {
		fmt.Println("Добавлено в избранное")
	} else {
		fmt.Println("Удалено из избранного")
	}
	return nil
}

func (a *app) cmdTrades(ctx context.Context, args []string) error {
	direction := trade.DirectionAll
	status := "all"
	if len(args) > 0 {
		direction = trade.Direction(args[0])
	}
	if len(args) > 1 {
		status = args[1]
	}

	trades, err := a.trades.List(ctx, direction, status)
	if err != nil {
		return err
	}
	for _, t := range trades {
		label := "обмен"
		if t.IsSale {
			label = "продажа"
		}
		fmt.Printf("  %s  [%s] %s", t.ID, t.Status, label)
		if t.ReceiverListing != nil {
			fmt.Printf("  за %q", t.ReceiverListing.Title)
		}
		if t.ChatID != uuid.Nil {
			fmt.Printf("  чат %s", t.ChatID)
		}
		fmt.Println()
	}
	fmt.Printf("Всего: %d\n", a.trades.Count())
	return nil
}

func (a *app) cmdPropose(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("использование: propose <listing_id> <my_listing_id|sale> [текст]")
	}

	receiverListingID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("неверный ID объявления: %w", err)
	}

	p := trade.Proposal{ReceiverListingID: receiverListingID}
	if args[1] == "sale" {
		p.RequestSale = true
	} else {
		p.SenderListingID, err = uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("неверный ID своего объявления: %w", err)
		}
	}
	if len(args) > 2 {
		p.Message = strings.Join(args[2:], " ")
	}

	tradeID, err := a.trades.Propose(ctx, p)
	if err != nil {
		return err
	}
	fmt.Printf("Предложение создано: %s\n", tradeID)
	return nil
}

func (a *app) cmdRespond(ctx context.Context, args []string, decision models.TradeStatus) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	result, err := a.trades.Respond(ctx, id, decision)
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	if result.ChatID != uuid.Nil {
		fmt.Printf("Создан чат: %s\n", result.ChatID)
	}
	return nil
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	result, err := a.trades.Cancel(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func (a *app) cmdChats(ctx context.Context) error {
	if err := a.directory.Refresh(ctx); err != nil {
		return err
	}
	a.directory.ApplyTradeThreads(a.trades.ChatThreads())

	user, _ := a.sess.Current()
	for _, c := range a.directory.Chats() {
		_, other := c.Counterparty(user.ID)
		name := "?"
		if other != nil {
			name = other.FirstName
		}
		fmt.Printf("  %s  %-15s %s", c.ID, name, c.LastMessageText)
		if c.UnreadCount > 0 {
			fmt.Printf("  (+%d)", c.UnreadCount)
		}
		fmt.Println()
	}
	fmt.Printf("Непрочитанных: %d\n", a.directory.TotalUnread())
	return nil
}

func (a *app) cmdOpen(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	if !a.directory.CanOpen(id) {
		return fmt.Errorf("чат недоступен")
	}

	a.cmdClose()
	conv := chat.NewConversation(a.client, id)
	if err := conv.Open(ctx); err != nil {
		return err
	}
	a.conversation = conv
	a.convTask = a.scheduler.Every("messages", chat.MessagesPollInterval, conv.Refresh)

	a.printConversation()
	return nil
}

func (a *app) cmdOlder(ctx context.Context) error {
	if a.conversation == nil {
		return fmt.Errorf("чат не открыт")
	}
	if err := a.conversation.LoadOlder(ctx); err != nil {
		return err
	}
	a.printConversation()
	return nil
}

func (a *app) cmdSend(ctx context.Context, args []string) error {
	if a.conversation == nil {
		return fmt.Errorf("чат не открыт")
	}
	if _, err := a.conversation.Send(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	a.printConversation()
	return nil
}

func (a *app) cmdClose() {
	if a.convTask != nil {
		a.convTask.Stop()
		a.convTask = nil
	}
	a.conversation = nil
}

// printConversation печатает буфер от старых сообщений к новым
func (a *app) printConversation() {
	user, _ := a.sess.Current()
	messages := a.conversation.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		who := "они"
		if m.SenderID == user.ID {
			who = "вы "
		}
		fmt.Printf("  [%s] %s: %s\n", m.CreatedAt.Format("15:04"), who, m.Text)
	}
	if a.conversation.HasMore() {
		fmt.Println("  ... older для истории")
	}
}

// parseID извлекает UUID из позиционного аргумента
func parseID(args []string, pos int) (uuid.UUID, error) {
	if len(args) <= pos {
		return uuid.Nil, fmt.Errorf("не указан ID")
	}
	id, err := uuid.Parse(args[pos])
	if err != nil {
		return uuid.Nil, fmt.Errorf("неверный формат ID: %w", err)
	}
	return id, nil
}
